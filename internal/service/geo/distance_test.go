package geo

import (
	"math"
	"testing"

	"incidentmap/internal/domain/incident"
)

func TestDistance(t *testing.T) {
	nyc := incident.Coordinate{Longitude: -73.9857, Latitude: 40.7484}
	philly := incident.Coordinate{Longitude: -75.1652, Latitude: 39.9526}

	if d := Distance(nyc, nyc); d != 0 {
		t.Fatalf("Distance(same)=%v want 0", d)
	}

	d := Distance(nyc, philly)
	if math.Abs(d-130) > 5 {
		t.Fatalf("Distance(nyc, philly)=%v want about 130km", d)
	}
	if back := Distance(philly, nyc); math.Abs(back-d) > 1e-9 {
		t.Fatalf("Distance not symmetric: %v vs %v", d, back)
	}
}

func TestNearby(t *testing.T) {
	center := incident.Coordinate{Longitude: -73.0, Latitude: 40.0}
	markers := []incident.MarkerState{
		{LocationKey: "a", Coordinate: incident.Coordinate{Longitude: -73.0, Latitude: 40.001}},
		{LocationKey: "b", Coordinate: incident.Coordinate{Longitude: -74.0, Latitude: 41.0}},
		{LocationKey: "c", Coordinate: incident.Coordinate{Longitude: -73.01, Latitude: 40.0}},
	}

	got := Nearby(markers, center, 2)
	if len(got) != 2 || got[0].LocationKey != "a" || got[1].LocationKey != "c" {
		t.Fatalf("Nearby=%+v want keys a, c", got)
	}
}
