package incident

import (
	"time"
)

// LogEntry is one report as delivered by the log feed
type LogEntry struct {
	Timestamp   int64  `json:"timestamp"`
	Coordinates string `json:"coordinates,omitempty"`
	Location    string `json:"location"`
	Label       string `json:"label,omitempty"`
	Text        string `json:"text"`
}

// Coordinate is a resolved map position in (longitude, latitude) order
type Coordinate struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
}

// Summary is the rendered form of a single log entry inside a marker's
// detail panel
type Summary struct {
	Label string `json:"label,omitempty"` // glyph + label name; empty when the entry had no label
	When  string `json:"when"`
	Text  string `json:"text"`
}

// MarkerHandle identifies a marker on a Surface
type MarkerHandle string

// MarkerState is the registry's record for one location key
type MarkerState struct {
	LocationKey string       `json:"location_key"`
	Coordinate  Coordinate   `json:"coordinate"`
	Location    string       `json:"location"`
	Icon        string       `json:"icon"`
	History     []Summary    `json:"history"`
	LastUpdate  int64        `json:"last_update"` // milliseconds
	Opacity     float64      `json:"opacity"`
	Handle      MarkerHandle `json:"handle"`
}

// Clone returns a copy that shares no slices with m
func (m MarkerState) Clone() MarkerState {
	out := m
	out.History = append([]Summary(nil), m.History...)
	return out
}

// SidebarEntry is the flattened display form of an admitted entry
type SidebarEntry struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	When      string      `json:"when"`
	Heading   string      `json:"heading"`
	Glyph     string      `json:"glyph,omitempty"`
	Label     string      `json:"label,omitempty"`
	Text      string      `json:"text"`
	Focus     *Coordinate `json:"focus,omitempty"` // nil when the entry has no location key
}

// FetchError is a recorded feed failure
type FetchError struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Snapshot is the full reconciliation state, used for persistence and for
// bringing new surface clients up to date
type Snapshot struct {
	Watermark int64          `json:"watermark"`
	Markers   []MarkerState  `json:"markers"`
	Sidebar   []SidebarEntry `json:"sidebar"`
}

// CycleRecord describes what one successful reconciliation cycle changed
type CycleRecord struct {
	Watermark int64
	Markers   []MarkerState
	Sidebar   []SidebarEntry
}
