// internal/service/reconcile/registry.go

package reconcile

import (
	"incidentmap/internal/domain/incident"
)

// Change describes what a merge did to a marker, for the presentation step
type Change struct {
	Created bool
	Key     string
	Coord   incident.Coordinate
	Options incident.MarkerOptions // set when Created
	Icon    string
	Summary incident.Summary
	// Revive is set when a faded marker gets a new entry and must be
	// shown at full opacity again
	Revive bool
}

// Merge folds entry into prev and returns the new state plus a description
// of the change. prev is nil for a new key. Merge has no side effects and
// does not modify prev.
//
// The icon always follows the latest entry: an entry without a label
// resets the marker to the no-label icon. maxHistory <= 0 keeps every summary.
func Merge(prev *incident.MarkerState, loc Location, entry incident.LogEntry, r Renderer, maxHistory int) (incident.MarkerState, Change) {
	icon := r.Icon(entry.Label)
	summary := r.Summary(entry)

	if prev == nil {
		state := incident.MarkerState{
			LocationKey: loc.Key,
			Coordinate:  loc.Coordinate,
			Location:    entry.Location,
			Icon:        icon,
			History:     []incident.Summary{summary},
			LastUpdate:  entry.Timestamp * 1000,
			Opacity:     1,
		}
		return state, Change{
			Created: true,
			Key:     loc.Key,
			Coord:   loc.Coordinate,
			Options: incident.MarkerOptions{
				Icon:     icon,
				Location: entry.Location,
				Initial:  summary,
			},
			Icon:    icon,
			Summary: summary,
		}
	}

	state := *prev
	history := make([]incident.Summary, 0, len(prev.History)+1)
	history = append(history, summary)
	history = append(history, prev.History...)
	if maxHistory > 0 && len(history) > maxHistory {
		history = history[:maxHistory]
	}

	state.Icon = icon
	state.History = history
	state.LastUpdate = entry.Timestamp * 1000
	state.Opacity = 1

	return state, Change{
		Key:     loc.Key,
		Coord:   state.Coordinate,
		Icon:    icon,
		Summary: summary,
		Revive:  prev.Opacity < 1,
	}
}

// Registry holds one MarkerState per location key and mirrors every change
// onto a Surface. It is not safe for concurrent use; the Engine serializes
// access.
type Registry struct {
	markers    map[string]*incident.MarkerState
	order      []string
	surface    incident.Surface
	renderer   Renderer
	maxHistory int
}

// NewRegistry creates an empty registry
func NewRegistry(surface incident.Surface, renderer Renderer, maxHistory int) *Registry {
	return &Registry{
		markers:    make(map[string]*incident.MarkerState),
		surface:    surface,
		renderer:   renderer,
		maxHistory: maxHistory,
	}
}

// Upsert creates or merges the marker for loc and returns its new state
func (r *Registry) Upsert(loc Location, entry incident.LogEntry) incident.MarkerState {
	prev := r.markers[loc.Key]
	state, change := Merge(prev, loc, entry, r.renderer, r.maxHistory)
	r.apply(&state, change)

	if prev == nil {
		r.order = append(r.order, loc.Key)
	}
	r.markers[loc.Key] = &state

	return state
}

// apply pushes a change to the surface
func (r *Registry) apply(state *incident.MarkerState, change Change) {
	if change.Created {
		state.Handle = r.surface.CreateMarker(change.Coord, change.Options)
		return
	}
	r.surface.SetIcon(state.Handle, change.Icon)
	r.surface.PrependDetail(state.Handle, change.Summary)
	if change.Revive {
		r.surface.SetOpacity(state.Handle, 1)
	}
}

// Restore re-creates a persisted marker on the surface and in the registry
func (r *Registry) Restore(m incident.MarkerState) {
	if _, exists := r.markers[m.LocationKey]; exists || len(m.History) == 0 {
		return
	}

	state := m.Clone()
	if state.Opacity <= 0 {
		state.Opacity = 1
	}
	oldest := len(state.History) - 1
	state.Handle = r.surface.CreateMarker(state.Coordinate, incident.MarkerOptions{
		Icon:     state.Icon,
		Location: state.Location,
		Initial:  state.History[oldest],
	})
	for i := oldest - 1; i >= 0; i-- {
		r.surface.PrependDetail(state.Handle, state.History[i])
	}
	if state.Opacity < 1 {
		r.surface.SetOpacity(state.Handle, state.Opacity)
	}

	r.order = append(r.order, state.LocationKey)
	r.markers[state.LocationKey] = &state
}

// Get returns a copy of the marker for key
func (r *Registry) Get(key string) (incident.MarkerState, bool) {
	m, ok := r.markers[key]
	if !ok {
		return incident.MarkerState{}, false
	}
	return m.Clone(), true
}

// All returns copies of every marker in creation order
func (r *Registry) All() []incident.MarkerState {
	out := make([]incident.MarkerState, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.markers[key].Clone())
	}
	return out
}

// Len returns the number of markers
func (r *Registry) Len() int {
	return len(r.markers)
}

// states exposes the live records to the decay sweep
func (r *Registry) states() []*incident.MarkerState {
	out := make([]*incident.MarkerState, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.markers[key])
	}
	return out
}
