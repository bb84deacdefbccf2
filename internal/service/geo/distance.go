// internal/service/geo/distance.go

package geo

import (
	"math"

	"incidentmap/internal/domain/incident"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between two coordinates in km
func Distance(a, b incident.Coordinate) float64 {
	// Convert latitude and longitude from degrees to radians
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	// Haversine formula
	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// IsWithinRadius checks if a coordinate lies within radiusKm of center
func IsWithinRadius(c, center incident.Coordinate, radiusKm float64) bool {
	return Distance(c, center) <= radiusKm
}

// Nearby returns the markers within radiusKm of center, preserving order.
// This is a read-only query; it never affects how entries are grouped.
func Nearby(markers []incident.MarkerState, center incident.Coordinate, radiusKm float64) []incident.MarkerState {
	out := make([]incident.MarkerState, 0)
	for _, m := range markers {
		if IsWithinRadius(m.Coordinate, center, radiusKm) {
			out = append(out, m)
		}
	}
	return out
}
