// internal/adapter/surface/fanout.go

package surface

import (
	"sync"

	"incidentmap/internal/domain/incident"
)

// Fanout drives a primary surface and any number of mirrors. Handles
// returned to the caller are the primary's; each mirror's own handles are
// tracked alongside.
type Fanout struct {
	primary incident.Surface
	mirrors []incident.Surface

	mu      sync.Mutex
	handles map[incident.MarkerHandle][]incident.MarkerHandle
}

// NewFanout creates a fanout surface
func NewFanout(primary incident.Surface, mirrors ...incident.Surface) *Fanout {
	return &Fanout{
		primary: primary,
		mirrors: mirrors,
		handles: make(map[incident.MarkerHandle][]incident.MarkerHandle),
	}
}

// CreateMarker creates the marker on every surface
func (f *Fanout) CreateMarker(coord incident.Coordinate, opts incident.MarkerOptions) incident.MarkerHandle {
	handle := f.primary.CreateMarker(coord, opts)

	mirrored := make([]incident.MarkerHandle, len(f.mirrors))
	for i, m := range f.mirrors {
		mirrored[i] = m.CreateMarker(coord, opts)
	}

	f.mu.Lock()
	f.handles[handle] = mirrored
	f.mu.Unlock()

	return handle
}

// SetIcon updates the icon on every surface
func (f *Fanout) SetIcon(handle incident.MarkerHandle, icon string) {
	f.primary.SetIcon(handle, icon)
	f.each(handle, func(s incident.Surface, h incident.MarkerHandle) { s.SetIcon(h, icon) })
}

// PrependDetail adds the summary on every surface
func (f *Fanout) PrependDetail(handle incident.MarkerHandle, summary incident.Summary) {
	f.primary.PrependDetail(handle, summary)
	f.each(handle, func(s incident.Surface, h incident.MarkerHandle) { s.PrependDetail(h, summary) })
}

// SetOpacity updates opacity on every surface
func (f *Fanout) SetOpacity(handle incident.MarkerHandle, value float64) {
	f.primary.SetOpacity(handle, value)
	f.each(handle, func(s incident.Surface, h incident.MarkerHandle) { s.SetOpacity(h, value) })
}

// Focus is forwarded to every surface
func (f *Fanout) Focus(coord incident.Coordinate) {
	f.primary.Focus(coord)
	for _, m := range f.mirrors {
		m.Focus(coord)
	}
}

// PrependSidebar is forwarded to every surface that renders a sidebar
func (f *Fanout) PrependSidebar(entry incident.SidebarEntry) {
	if s, ok := f.primary.(incident.SidebarSurface); ok {
		s.PrependSidebar(entry)
	}
	for _, m := range f.mirrors {
		if s, ok := m.(incident.SidebarSurface); ok {
			s.PrependSidebar(entry)
		}
	}
}

func (f *Fanout) each(handle incident.MarkerHandle, fn func(incident.Surface, incident.MarkerHandle)) {
	f.mu.Lock()
	mirrored := f.handles[handle]
	f.mu.Unlock()

	for i, h := range mirrored {
		fn(f.mirrors[i], h)
	}
}
