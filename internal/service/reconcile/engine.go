// internal/service/reconcile/engine.go

package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"incidentmap/internal/clock"
	"incidentmap/internal/domain/incident"
	"incidentmap/internal/logger"
	"incidentmap/internal/metrics"
)

// State is the reconciliation cycle state
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateAdmitting
	StateFetchFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateAdmitting:
		return "admitting"
	case StateFetchFailed:
		return "fetch_failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EngineConfig contains configuration for the reconciliation engine
type EngineConfig struct {
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	ExpireWindow  time.Duration
	MinOpacity    float64
	FadeThreshold float64
	MaxHistory    int
	MaxSidebar    int
	MaxErrors     int
	Zone          *time.Location
	Labels        incident.LabelTable
}

// DefaultEngineConfig returns the stock timing and decay parameters
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PollInterval:  5 * time.Second,
		FetchTimeout:  10 * time.Second,
		ExpireWindow:  time.Hour,
		MinOpacity:    0.1,
		FadeThreshold: 0.1,
		MaxErrors:     100,
		Zone:          time.Local,
		Labels:        incident.DefaultLabels(),
	}
}

// Engine implements the incident.Reconciler interface. It owns the
// watermark, the marker registry, the sidebar and the fetch error log;
// all four are guarded by mu.
type Engine struct {
	feed    incident.Feed
	surface incident.Surface
	store   incident.Store
	clock   clock.Clock
	log     *logger.Logger
	metrics *metrics.Metrics
	config  EngineConfig

	renderer Renderer
	decay    Decay

	mu        sync.Mutex
	watermark int64
	registry  *Registry
	sidebar   *Sidebar
	errs      []incident.FetchError

	inFlight atomic.Bool
	state    atomic.Int32

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a reconciliation engine. store may be nil.
func NewEngine(
	feed incident.Feed,
	surface incident.Surface,
	store incident.Store,
	clk clock.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
	config EngineConfig,
) *Engine {
	if config.Labels == nil {
		config.Labels = incident.DefaultLabels()
	}
	if config.Zone == nil {
		config.Zone = time.Local
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	renderer := Renderer{Labels: config.Labels, Zone: config.Zone}

	return &Engine{
		feed:     feed,
		surface:  surface,
		store:    store,
		clock:    clk,
		log:      log.WithComponent("reconcile"),
		metrics:  m,
		config:   config,
		renderer: renderer,
		decay: Decay{
			Window:    config.ExpireWindow,
			Floor:     config.MinOpacity,
			Threshold: config.FadeThreshold,
		},
		registry: NewRegistry(surface, renderer, config.MaxHistory),
		sidebar:  NewSidebar(config.MaxSidebar),
	}
}

// Start restores persisted state and begins polling. The first cycle runs
// immediately, then one per PollInterval.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Restore(ctx); err != nil {
		return fmt.Errorf("error restoring state: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.run(ctx)

	return nil
}

// Stop halts polling and waits for in-flight cycles to finish
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	c := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run fires a cycle on every tick. Cycles run in their own goroutine so a
// slow fetch does not hold back the timer; the in-flight guard in Cycle
// skips ticks that overlap an outstanding one.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := e.clock.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	e.log.Info("poller started", "interval", e.config.PollInterval, "expire_window", e.config.ExpireWindow)

	e.spawnCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("poller stopped")
			return
		case <-ticker.C:
			e.spawnCycle(ctx)
		}
	}
}

func (e *Engine) spawnCycle(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Cycle(ctx)
	}()
}

// Cycle runs one reconciliation round: fetch, admit, merge, list, decay.
// A failed fetch still runs the decay sweep. It returns the outcome label. A cycle started while another one is in
// flight returns immediately with metrics.OutcomeSkipped.
func (e *Engine) Cycle(ctx context.Context) string {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.metrics.Cycles.WithLabelValues(metrics.OutcomeSkipped).Inc()
		e.log.Debug("cycle skipped, previous fetch still outstanding")
		return metrics.OutcomeSkipped
	}
	defer e.inFlight.Store(false)
	defer e.setState(StateIdle)

	e.setState(StateFetching)

	fetchCtx := ctx
	if e.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.config.FetchTimeout)
		defer cancel()
	}

	started := e.clock.Now()
	entries, err := e.feed.Fetch(fetchCtx)
	e.metrics.FetchDurationMs.Observe(float64(e.clock.Now().Sub(started).Milliseconds()))
	if err != nil {
		e.setState(StateFetchFailed)
		e.recordError(err)
		// markers keep fading while the feed is down; the sweep only
		// writes opacity
		e.DecaySweep(e.clock.Now().UnixMilli())
		e.metrics.Cycles.WithLabelValues(metrics.OutcomeFailed).Inc()
		return metrics.OutcomeFailed
	}

	e.setState(StateAdmitting)

	e.mu.Lock()
	rec := e.processLocked(entries)
	e.sweepLocked(e.clock.Now().UnixMilli())
	// persist the post-sweep opacity of the touched markers
	for i := range rec.Markers {
		if m, ok := e.registry.Get(rec.Markers[i].LocationKey); ok {
			rec.Markers[i] = m
		}
	}
	e.mu.Unlock()

	e.metrics.Cycles.WithLabelValues(metrics.OutcomeOK).Inc()

	if len(rec.Sidebar) > 0 {
		e.log.Info("cycle admitted entries",
			"fetched", len(entries),
			"admitted", len(rec.Sidebar),
			"markers_touched", len(rec.Markers),
			"watermark", rec.Watermark,
		)
		e.persist(ctx, rec)
	}

	return metrics.OutcomeOK
}

// ProcessBatch runs admission, marker merge and sidebar append for a batch
func (e *Engine) ProcessBatch(entries []incident.LogEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processLocked(entries)
}

// processLocked does the work of ProcessBatch. The watermark is advanced
// once, after the whole batch.
func (e *Engine) processLocked(entries []incident.LogEntry) incident.CycleRecord {
	admitted, next := FilterNew(e.watermark, entries)
	e.metrics.Stale.Add(float64(len(entries) - len(admitted)))

	touched := make(map[string]struct{})
	var touchedOrder []string
	rec := incident.CycleRecord{}

	sidebarSurface, _ := e.surface.(incident.SidebarSurface)

	for _, entry := range admitted {
		var focus *incident.Coordinate

		if loc, ok := ResolveLocation(entry.Coordinates); ok {
			e.registry.Upsert(loc, entry)
			if _, seen := touched[loc.Key]; !seen {
				touched[loc.Key] = struct{}{}
				touchedOrder = append(touchedOrder, loc.Key)
			}
			coord := loc.Coordinate
			focus = &coord
		} else {
			e.metrics.Unlocated.Inc()
			e.log.Debug("entry without usable coordinates", "timestamp", entry.Timestamp, "coordinates", entry.Coordinates)
		}

		item := e.renderer.SidebarEntry(entry, focus)
		e.sidebar.Prepend(item)
		if sidebarSurface != nil {
			sidebarSurface.PrependSidebar(item)
		}
		rec.Sidebar = append(rec.Sidebar, item)
	}

	e.watermark = next

	for _, key := range touchedOrder {
		if m, ok := e.registry.Get(key); ok {
			rec.Markers = append(rec.Markers, m)
		}
	}
	rec.Watermark = e.watermark

	e.metrics.Admitted.Add(float64(len(admitted)))
	e.metrics.Watermark.Set(float64(e.watermark))
	e.metrics.Markers.Set(float64(e.registry.Len()))
	e.metrics.SidebarEntries.Set(float64(e.sidebar.Len()))

	return rec
}

// DecaySweep recomputes marker opacity at now (milliseconds)
func (e *Engine) DecaySweep(now int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweepLocked(now)
}

func (e *Engine) sweepLocked(now int64) {
	writes := e.decay.Sweep(now, e.registry.states(), e.surface)
	e.metrics.OpacityWrites.Add(float64(writes))
}

// Restore loads the persisted snapshot, if a store is configured
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	snap, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.Watermark > e.watermark {
		e.watermark = snap.Watermark
	}
	for _, m := range snap.Markers {
		e.registry.Restore(m)
	}
	// snapshot sidebar is newest first
	sidebarSurface, _ := e.surface.(incident.SidebarSurface)
	for i := len(snap.Sidebar) - 1; i >= 0; i-- {
		e.sidebar.Prepend(snap.Sidebar[i])
		if sidebarSurface != nil {
			sidebarSurface.PrependSidebar(snap.Sidebar[i])
		}
	}

	e.metrics.Watermark.Set(float64(e.watermark))
	e.metrics.Markers.Set(float64(e.registry.Len()))
	e.metrics.SidebarEntries.Set(float64(e.sidebar.Len()))

	e.log.Info("state restored",
		"watermark", e.watermark,
		"markers", e.registry.Len(),
		"sidebar", e.sidebar.Len(),
	)
	return nil
}

func (e *Engine) persist(ctx context.Context, rec incident.CycleRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveCycle(ctx, rec); err != nil {
		e.log.WithError(err).Error("failed to persist cycle", "watermark", rec.Watermark)
	}
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errs = append(e.errs, incident.FetchError{
		At:      e.clock.Now(),
		Message: err.Error(),
	})
	if e.config.MaxErrors > 0 && len(e.errs) > e.config.MaxErrors {
		e.errs = append(e.errs[:0:0], e.errs[len(e.errs)-e.config.MaxErrors:]...)
	}

	e.log.WithError(err).Warn("feed fetch failed", "watermark", e.watermark)
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// State returns the current cycle state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Watermark returns the highest admitted timestamp
func (e *Engine) Watermark() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.watermark
}

// Markers returns every marker in creation order
func (e *Engine) Markers() []incident.MarkerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.All()
}

// Marker returns the marker for a location key
func (e *Engine) Marker(key string) (incident.MarkerState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Get(key)
}

// Sidebar returns up to limit entries, newest first
func (e *Engine) Sidebar(limit int) []incident.SidebarEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sidebar.List(limit)
}

// FocusEntry asks the surface to center on the sidebar entry's coordinates
func (e *Engine) FocusEntry(id string) error {
	e.mu.Lock()
	entry, ok := e.sidebar.Find(id)
	e.mu.Unlock()

	if !ok {
		return incident.ErrNotFound
	}
	if entry.Focus == nil {
		return incident.ErrNoLocation
	}

	e.surface.Focus(*entry.Focus)
	return nil
}

// Errors returns a copy of the fetch error log, oldest first
func (e *Engine) Errors() []incident.FetchError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]incident.FetchError(nil), e.errs...)
}

// Snapshot returns the full current state
func (e *Engine) Snapshot() incident.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return incident.Snapshot{
		Watermark: e.watermark,
		Markers:   e.registry.All(),
		Sidebar:   e.sidebar.List(0),
	}
}

// Labels returns the label table in use
func (e *Engine) Labels() incident.LabelTable {
	return e.config.Labels
}
