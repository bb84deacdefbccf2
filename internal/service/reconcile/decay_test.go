package reconcile

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"incidentmap/internal/domain/incident"
)

func stockDecay() Decay {
	return Decay{Window: time.Hour, Floor: 0.1, Threshold: 0.1}
}

func TestDecayFade(t *testing.T) {
	d := stockDecay()
	hour := time.Hour.Milliseconds()

	cases := []struct {
		name    string
		elapsed int64
		want    float64
	}{
		{name: "just updated", elapsed: 0, want: 1},
		{name: "half window", elapsed: hour / 2, want: 0.5},
		{name: "full window", elapsed: hour, want: 0},
		{name: "past window", elapsed: 3 * hour, want: 0},
		{name: "clock behind update", elapsed: -hour, want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := d.Fade(1_000_000_000+tc.elapsed, 1_000_000_000)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Fade=%v want %v", got, tc.want)
			}
		})
	}
}

func TestDecayOpacityFloor(t *testing.T) {
	d := stockDecay()
	if got := d.Opacity(0); got != 0.1 {
		t.Fatalf("Opacity(0)=%v want 0.1", got)
	}
	if got := d.Opacity(0.7); got != 0.7 {
		t.Fatalf("Opacity(0.7)=%v want 0.7", got)
	}
}

func TestDecaySweepWritesOnlyBelowThreshold(t *testing.T) {
	d := stockDecay()
	surface := &recordingSurface{}
	hour := time.Hour.Milliseconds()
	now := int64(10 * hour)

	fresh := &incident.MarkerState{LocationKey: "fresh", Handle: "h1", LastUpdate: now - hour/2, Opacity: 1}
	recent := &incident.MarkerState{LocationKey: "recent", Handle: "h2", LastUpdate: now - hour*8/10, Opacity: 1}
	expired := &incident.MarkerState{LocationKey: "expired", Handle: "h3", LastUpdate: now - 2*hour, Opacity: 1,
		History: []incident.Summary{{Text: "keep"}}}

	writes := d.Sweep(now, []*incident.MarkerState{fresh, recent, expired}, surface)
	if writes != 1 {
		t.Fatalf("writes=%d want 1", writes)
	}

	calls := surface.ops("opacity")
	if len(calls) != 1 || calls[0].Handle != "h3" || calls[0].Opacity != 0.1 {
		t.Fatalf("opacity calls=%+v", calls)
	}
	if fresh.Opacity != 1 || recent.Opacity != 1 {
		t.Fatalf("markers above threshold changed: %v %v", fresh.Opacity, recent.Opacity)
	}
	if expired.Opacity != 0.1 {
		t.Fatalf("expired opacity=%v want 0.1", expired.Opacity)
	}
	if expired.LastUpdate != now-2*hour || len(expired.History) != 1 {
		t.Fatal("sweep modified fields other than opacity")
	}
}

func TestDecayProperties(t *testing.T) {
	d := stockDecay()
	window := d.Window.Milliseconds()

	properties := gopter.NewProperties(nil)

	properties.Property("fade is non-increasing in elapsed time", prop.ForAll(
		func(last, a, b int64) bool {
			if a > b {
				a, b = b, a
			}
			return d.Fade(last+a, last) >= d.Fade(last+b, last)
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 3*window),
		gen.Int64Range(0, 3*window),
	))

	properties.Property("fade stays in [0, 1] and opacity never drops below the floor", prop.ForAll(
		func(last, elapsed int64) bool {
			fade := d.Fade(last+elapsed, last)
			if fade < 0 || fade > 1 {
				return false
			}
			return d.Opacity(fade) >= d.Floor
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(-window, 5*window),
	))

	properties.TestingRun(t)
}
