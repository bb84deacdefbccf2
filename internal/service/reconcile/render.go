// internal/service/reconcile/render.go

package reconcile

import (
	"time"

	"github.com/google/uuid"

	"incidentmap/internal/domain/incident"
)

// whenLayout mirrors the en-US locale date string shown by map clients
const whenLayout = "1/2/2006, 3:04:05 PM"

// Renderer turns log entries into display values
type Renderer struct {
	Labels incident.LabelTable
	Zone   *time.Location
}

// Icon returns the marker glyph for a label. Absent, unknown and "other"
// labels all yield the empty no-label icon.
func (r Renderer) Icon(label string) string {
	glyph, _ := r.Labels.Lookup(label)
	return glyph
}

// When formats a feed timestamp (seconds)
func (r Renderer) When(ts int64) string {
	zone := r.Zone
	if zone == nil {
		zone = time.Local
	}
	return time.Unix(ts, 0).In(zone).Format(whenLayout)
}

// Summary renders an entry for a marker's detail panel
func (r Renderer) Summary(e incident.LogEntry) incident.Summary {
	s := incident.Summary{
		When: r.When(e.Timestamp),
		Text: e.Text,
	}
	if glyph, ok := r.Labels.Lookup(e.Label); ok {
		s.Label = labelLine(glyph, e.Label)
	}
	return s
}

// SidebarEntry renders an entry for the sidebar. focus is nil for entries
// without a location key.
func (r Renderer) SidebarEntry(e incident.LogEntry, focus *incident.Coordinate) incident.SidebarEntry {
	entry := incident.SidebarEntry{
		ID:        uuid.New().String(),
		Timestamp: e.Timestamp,
		When:      r.When(e.Timestamp),
		Heading:   e.Location,
		Text:      e.Text,
		Focus:     focus,
	}

	if glyph, ok := r.Labels.Lookup(e.Label); ok && e.Label != incident.LabelOther {
		entry.Glyph = glyph
		entry.Label = e.Label
		entry.Heading = labelLine(glyph, e.Label) + " @ " + e.Location
	}

	return entry
}

func labelLine(glyph, label string) string {
	if glyph == "" {
		return label
	}
	return glyph + " " + label
}
