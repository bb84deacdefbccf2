// internal/service/reconcile/decay.go

package reconcile

import (
	"math"
	"time"

	"incidentmap/internal/domain/incident"
)

// Decay computes how markers fade after their last update
type Decay struct {
	// Window is the time for a marker to fade from full opacity to the floor
	Window time.Duration
	// Floor is the minimum opacity; markers never become invisible
	Floor float64
	// Threshold gates surface writes: opacity is only pushed once fade < Threshold
	Threshold float64
}

// Fade returns the linear decay factor in [0, 1] for a marker last
// updated at lastUpdate (ms), evaluated at now (ms)
func (d Decay) Fade(now, lastUpdate int64) float64 {
	window := float64(d.Window.Milliseconds())
	if window <= 0 {
		return 0
	}
	elapsed := float64(now - lastUpdate)
	return math.Max(0, math.Min(1, 1-elapsed/window))
}

// Opacity clamps a fade value to the floor
func (d Decay) Opacity(fade float64) float64 {
	return math.Max(fade, d.Floor)
}

// Sweep recomputes opacity for every marker and pushes it to the surface
// where fade has dropped below the threshold. It only writes the Opacity
// field and returns the number of surface writes.
func (d Decay) Sweep(now int64, markers []*incident.MarkerState, surface incident.Surface) int {
	writes := 0
	for _, m := range markers {
		fade := d.Fade(now, m.LastUpdate)
		if fade >= d.Threshold {
			continue
		}
		opacity := d.Opacity(fade)
		surface.SetOpacity(m.Handle, opacity)
		m.Opacity = opacity
		writes++
	}
	return writes
}
