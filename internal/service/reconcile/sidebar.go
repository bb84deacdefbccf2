// internal/service/reconcile/sidebar.go

package reconcile

import (
	"incidentmap/internal/domain/incident"
)

// Sidebar is the chronological list of admitted entries. Entries are kept
// oldest first internally and returned newest first.
type Sidebar struct {
	entries []incident.SidebarEntry
	max     int
}

// NewSidebar creates a sidebar retaining at most max entries; max <= 0
// retains everything
func NewSidebar(max int) *Sidebar {
	return &Sidebar{max: max}
}

// Prepend adds entry as the newest item, dropping the oldest ones past capacity
func (s *Sidebar) Prepend(entry incident.SidebarEntry) {
	s.entries = append(s.entries, entry)
	if s.max > 0 && len(s.entries) > s.max {
		drop := len(s.entries) - s.max
		s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	}
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Sidebar) List(limit int) []incident.SidebarEntry {
	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]incident.SidebarEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Find returns the entry with the given ID
func (s *Sidebar) Find(id string) (incident.SidebarEntry, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID == id {
			return s.entries[i], true
		}
	}
	return incident.SidebarEntry{}, false
}

// Len returns the number of retained entries
func (s *Sidebar) Len() int {
	return len(s.entries)
}
