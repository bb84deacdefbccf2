// internal/domain/incident/engine.go

package incident

import (
	"context"
)

// Feed is a pull-based source of log entries
type Feed interface {
	// Fetch returns the entries currently offered by the feed, in delivery order
	Fetch(ctx context.Context) ([]LogEntry, error)
}

// MarkerOptions describes a marker at creation time
type MarkerOptions struct {
	Icon     string  `json:"icon"`
	Location string  `json:"location"`
	Initial  Summary `json:"initial"`
}

// Surface is the presentation side that displays markers
type Surface interface {
	// CreateMarker places a new marker and returns its handle
	CreateMarker(coord Coordinate, opts MarkerOptions) MarkerHandle

	// SetIcon replaces the marker glyph; an empty icon means the no-label visual
	SetIcon(handle MarkerHandle, icon string)

	// PrependDetail adds a summary to the front of the marker's detail panel
	PrependDetail(handle MarkerHandle, summary Summary)

	// SetOpacity changes the marker's rendered opacity
	SetOpacity(handle MarkerHandle, value float64)

	// Focus centers the map on a coordinate
	Focus(coord Coordinate)
}

// SidebarSurface is implemented by surfaces that also render the sidebar
type SidebarSurface interface {
	PrependSidebar(entry SidebarEntry)
}

// Store persists reconciliation state across restarts
type Store interface {
	// LoadSnapshot returns the last saved state
	LoadSnapshot(ctx context.Context) (Snapshot, error)

	// SaveCycle records the changes of one successful cycle
	SaveCycle(ctx context.Context, rec CycleRecord) error
}

// Reconciler defines the interface of the reconciliation engine
type Reconciler interface {
	// ProcessBatch admits, merges and lists a batch of entries
	ProcessBatch(entries []LogEntry)

	// DecaySweep recomputes marker opacity at now (milliseconds)
	DecaySweep(now int64)

	// Watermark returns the highest admitted timestamp
	Watermark() int64

	// Markers returns a copy of every marker state
	Markers() []MarkerState

	// Marker returns one marker by location key
	Marker(key string) (MarkerState, bool)

	// Sidebar returns up to limit sidebar entries, newest first; limit <= 0 means all
	Sidebar(limit int) []SidebarEntry

	// FocusEntry asks the surface to center on a sidebar entry's location
	FocusEntry(id string) error

	// Errors returns the recorded fetch failures
	Errors() []FetchError

	// Snapshot returns the full current state
	Snapshot() Snapshot

	// Labels returns the label table in use
	Labels() LabelTable
}
