// Package metrics exposes pipeline instrumentation as Prometheus gauges
// backed by atomic counters.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline metrics.
type Metrics struct {
	// Cycle counters
	CyclesStarted   atomic.Uint64
	CyclesCompleted atomic.Uint64
	CyclesFailed    atomic.Uint64
	CyclesDropped   atomic.Uint64 // re-entrant starts rejected by the guard

	// Pass counters
	PassesRun      atomic.Uint64
	PassFailures   atomic.Uint64
	FallbackPasses atomic.Uint64

	// Capability error counters
	DetectorFailures atomic.Uint64
	PolicyFailures   atomic.Uint64

	// Latency tracking
	CycleLatencyMs atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its Prometheus collectors registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"agegate_cycles_started_total", "Total analysis cycles started", m.CyclesStarted.Load},
		{"agegate_cycles_completed_total", "Total analysis cycles completed with a verdict", m.CyclesCompleted.Load},
		{"agegate_cycles_failed_total", "Total analysis cycles that ended in error", m.CyclesFailed.Load},
		{"agegate_cycles_dropped_total", "Total re-entrant cycle starts dropped", m.CyclesDropped.Load},
		{"agegate_passes_run_total", "Total inference passes completed", m.PassesRun.Load},
		{"agegate_pass_failures_total", "Total inference passes that failed", m.PassFailures.Load},
		{"agegate_fallback_passes_total", "Total fallback passes attempted", m.FallbackPasses.Load},
		{"agegate_detector_failures_total", "Total detector capability failures", m.DetectorFailures.Load},
		{"agegate_policy_failures_total", "Total policy sink failures", m.PolicyFailures.Load},
		{"agegate_cycle_latency_ms", "Latency of the last completed cycle in milliseconds", m.CycleLatencyMs.Load},
	}
	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// UpdateCycleLatency records the duration of the last completed cycle.
func (m *Metrics) UpdateCycleLatency(d time.Duration) {
	m.CycleLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
