package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"incidentmap/internal/domain/incident"
)

// surfaceCall is one recorded call on recordingSurface
type surfaceCall struct {
	Op      string
	Handle  incident.MarkerHandle
	Coord   incident.Coordinate
	Options incident.MarkerOptions
	Icon    string
	Summary incident.Summary
	Opacity float64
	Entry   incident.SidebarEntry
}

type recordingSurface struct {
	mu    sync.Mutex
	calls []surfaceCall
	next  int
}

func (s *recordingSurface) record(c surfaceCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *recordingSurface) CreateMarker(coord incident.Coordinate, opts incident.MarkerOptions) incident.MarkerHandle {
	s.mu.Lock()
	s.next++
	handle := incident.MarkerHandle(fmt.Sprintf("m%d", s.next))
	s.mu.Unlock()
	s.record(surfaceCall{Op: "create", Handle: handle, Coord: coord, Options: opts})
	return handle
}

func (s *recordingSurface) SetIcon(h incident.MarkerHandle, icon string) {
	s.record(surfaceCall{Op: "icon", Handle: h, Icon: icon})
}

func (s *recordingSurface) PrependDetail(h incident.MarkerHandle, summary incident.Summary) {
	s.record(surfaceCall{Op: "detail", Handle: h, Summary: summary})
}

func (s *recordingSurface) SetOpacity(h incident.MarkerHandle, v float64) {
	s.record(surfaceCall{Op: "opacity", Handle: h, Opacity: v})
}

func (s *recordingSurface) Focus(coord incident.Coordinate) {
	s.record(surfaceCall{Op: "focus", Coord: coord})
}

func (s *recordingSurface) PrependSidebar(entry incident.SidebarEntry) {
	s.record(surfaceCall{Op: "sidebar", Entry: entry})
}

func (s *recordingSurface) ops(op string) []surfaceCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []surfaceCall
	for _, c := range s.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *recordingSurface) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// scriptedFeed returns queued responses in order, then empty batches
type scriptedFeed struct {
	mu        sync.Mutex
	responses []feedResponse
	calls     int
}

type feedResponse struct {
	entries []incident.LogEntry
	err     error
}

func (f *scriptedFeed) push(entries []incident.LogEntry, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, feedResponse{entries: entries, err: err})
}

func (f *scriptedFeed) Fetch(ctx context.Context) ([]incident.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.responses) == 0 {
		return nil, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.entries, r.err
}

// blockingFeed holds every Fetch until release is closed
type blockingFeed struct {
	entered chan struct{}
	release chan struct{}
	entries []incident.LogEntry
}

func newBlockingFeed(entries []incident.LogEntry) *blockingFeed {
	return &blockingFeed{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
		entries: entries,
	}
}

func (f *blockingFeed) Fetch(ctx context.Context) ([]incident.LogEntry, error) {
	f.entered <- struct{}{}
	select {
	case <-f.release:
		return f.entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryStore struct {
	mu       sync.Mutex
	snapshot incident.Snapshot
	saved    []incident.CycleRecord
	loadErr  error
}

func (s *memoryStore) LoadSnapshot(ctx context.Context) (incident.Snapshot, error) {
	return s.snapshot, s.loadErr
}

func (s *memoryStore) SaveCycle(ctx context.Context, rec incident.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, rec)
	return nil
}

func (s *memoryStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func testRenderer() Renderer {
	return Renderer{Labels: incident.DefaultLabels(), Zone: time.UTC}
}

func entry(ts int64, coords, label, text string) incident.LogEntry {
	return incident.LogEntry{
		Timestamp:   ts,
		Coordinates: coords,
		Location:    "Main St",
		Label:       label,
		Text:        text,
	}
}
