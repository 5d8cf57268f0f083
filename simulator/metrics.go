package simulator

import (
	"net/http"

	"github.com/meikuraledutech/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for simulated runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	runsActive  prometheus.Gauge
	layersTotal prometheus.Counter
	nodeResults *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_runs_total",
				Help: "Total number of simulated workflow runs by result",
			},
			[]string{"result"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "workflow_run_duration_seconds",
				Help:    "Wall-clock duration of simulated runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "workflow_runs_active",
				Help: "Number of simulated runs currently in flight",
			},
		),

		layersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "workflow_layers_started_total",
				Help: "Total number of execution layers started",
			},
		),

		nodeResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_node_results_total",
				Help: "Total number of node resolutions by node type and status",
			},
			[]string{"type", "status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.runsActive,
		m.layersTotal,
		m.nodeResults,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

func (m *Metrics) layerStarted() {
	if m == nil {
		return
	}
	m.layersTotal.Inc()
}

func (m *Metrics) nodeResolved(t workflow.NodeType, s workflow.Status) {
	if m == nil {
		return
	}
	m.nodeResults.WithLabelValues(string(t), string(s)).Inc()
}

func (m *Metrics) runFinished(sum Summary) {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(sum.Result()).Inc()
	m.runDuration.Observe(sum.Duration.Seconds())
}
