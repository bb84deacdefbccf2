// internal/service/reconcile/locationkey.go

package reconcile

import (
	"math"
	"strconv"
	"strings"

	"incidentmap/internal/domain/incident"
)

// keyDelimiter joins the two components of a location key. It cannot
// occur in a decimal float literal.
const keyDelimiter = "_"

// Location is a resolved grouping key and map position
type Location struct {
	Key        string
	Coordinate incident.Coordinate
}

// ResolveLocation parses a "lat,lon" string. It reports false unless the
// string holds exactly two finite numbers. The key is built from the
// component text in (lon, lat) order without normalization, so "40.0"
// and "40" are different locations, as are "40,-73" and "40, -73".
func ResolveLocation(raw string) (Location, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Location{}, false
	}

	lat, latText, ok := parseComponent(parts[0])
	if !ok {
		return Location{}, false
	}
	lon, lonText, ok := parseComponent(parts[1])
	if !ok {
		return Location{}, false
	}

	return Location{
		Key:        lonText + keyDelimiter + latText,
		Coordinate: incident.Coordinate{Longitude: lon, Latitude: lat},
	}, true
}

// parseComponent parses one component. Surrounding whitespace is ignored
// for parsing but kept in the returned key text.
func parseComponent(s string) (float64, string, bool) {
	if strings.Contains(s, keyDelimiter) {
		return 0, "", false
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "", false
	}
	return v, s, true
}
