package reconcile

import (
	"strconv"
	"testing"

	"incidentmap/internal/domain/incident"
)

func TestSidebarNewestFirst(t *testing.T) {
	s := NewSidebar(0)
	for i := 1; i <= 4; i++ {
		s.Prepend(incident.SidebarEntry{ID: strconv.Itoa(i)})
	}

	got := s.List(0)
	want := []string{"4", "3", "2", "1"}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("List[%d]=%s want %s", i, got[i].ID, want[i])
		}
	}

	limited := s.List(2)
	if len(limited) != 2 || limited[0].ID != "4" || limited[1].ID != "3" {
		t.Fatalf("List(2)=%+v", limited)
	}
}

func TestSidebarCapacityDropsOldest(t *testing.T) {
	s := NewSidebar(3)
	for i := 1; i <= 5; i++ {
		s.Prepend(incident.SidebarEntry{ID: strconv.Itoa(i)})
	}

	if s.Len() != 3 {
		t.Fatalf("Len=%d want 3", s.Len())
	}
	if _, ok := s.Find("2"); ok {
		t.Fatal("entry 2 should have been dropped")
	}
	if e, ok := s.Find("5"); !ok || e.ID != "5" {
		t.Fatal("newest entry missing")
	}
	if got := s.List(0); got[len(got)-1].ID != "3" {
		t.Fatalf("oldest retained=%s want 3", got[len(got)-1].ID)
	}
}

func TestRendererSidebarEntry(t *testing.T) {
	r := testRenderer()
	focus := &incident.Coordinate{Longitude: -73, Latitude: 40}

	cases := []struct {
		name    string
		label   string
		heading string
		glyph   string
	}{
		{name: "known label", label: "fire", heading: "🔥 fire @ Main St", glyph: "🔥"},
		{name: "no label", label: "", heading: "Main St"},
		{name: "other label", label: "other", heading: "Main St"},
		{name: "unknown label", label: "spaceship", heading: "Main St"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := r.SidebarEntry(entry(100, "40,-73", tc.label, "text"), focus)
			if e.Heading != tc.heading {
				t.Fatalf("heading=%q want %q", e.Heading, tc.heading)
			}
			if e.Glyph != tc.glyph {
				t.Fatalf("glyph=%q want %q", e.Glyph, tc.glyph)
			}
			if e.ID == "" {
				t.Fatal("entry has no ID")
			}
			if e.When != "1/1/1970, 12:01:40 AM" {
				t.Fatalf("when=%q", e.When)
			}
			if e.Focus != focus {
				t.Fatal("focus not carried")
			}
		})
	}
}

func TestRendererSummaryLabels(t *testing.T) {
	r := testRenderer()

	if s := r.Summary(entry(0, "", "fire", "x")); s.Label != "🔥 fire" {
		t.Fatalf("fire label=%q", s.Label)
	}
	if s := r.Summary(entry(0, "", "other", "x")); s.Label != "other" {
		t.Fatalf("other label=%q", s.Label)
	}
	if s := r.Summary(entry(0, "", "", "x")); s.Label != "" {
		t.Fatalf("empty label=%q", s.Label)
	}
	if s := r.Summary(entry(0, "", "bogus", "x")); s.Label != "" {
		t.Fatalf("unknown label=%q", s.Label)
	}
}
