// internal/metrics/metrics.go

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the "outcome" label
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "fetch_failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds the reconciliation collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	Cycles          *prometheus.CounterVec
	Admitted        prometheus.Counter
	Stale           prometheus.Counter
	Unlocated       prometheus.Counter
	OpacityWrites   prometheus.Counter
	Watermark       prometheus.Gauge
	Markers         prometheus.Gauge
	SidebarEntries  prometheus.Gauge
	FetchDurationMs prometheus.Histogram
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incidentmap_cycles_total",
			Help: "Reconciliation cycles by outcome.",
		}, []string{"outcome"}),
		Admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incidentmap_entries_admitted_total",
			Help: "Log entries admitted past the watermark.",
		}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incidentmap_entries_stale_total",
			Help: "Log entries rejected at or below the watermark.",
		}),
		Unlocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incidentmap_entries_unlocated_total",
			Help: "Admitted entries without usable coordinates.",
		}),
		OpacityWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incidentmap_opacity_writes_total",
			Help: "Opacity updates pushed to the marker surface.",
		}),
		Watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "incidentmap_watermark_seconds",
			Help: "Highest admitted log timestamp.",
		}),
		Markers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "incidentmap_markers",
			Help: "Markers held by the registry.",
		}),
		SidebarEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "incidentmap_sidebar_entries",
			Help: "Entries retained in the sidebar feed.",
		}),
		FetchDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "incidentmap_fetch_duration_ms",
			Help:    "Feed fetch latency in milliseconds.",
			Buckets: []float64{5, 25, 100, 250, 1000, 2500, 10000},
		}),
	}

	m.registry.MustRegister(
		m.Cycles,
		m.Admitted,
		m.Stale,
		m.Unlocated,
		m.OpacityWrites,
		m.Watermark,
		m.Markers,
		m.SidebarEntries,
		m.FetchDurationMs,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
