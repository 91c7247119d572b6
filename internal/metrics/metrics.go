// Package metrics exposes Prometheus counters for runs, ingests, predictions
// and store failures. Each Metrics value owns its registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotofacil"

// Metrics holds the process collectors
type Metrics struct {
	registry *prometheus.Registry

	DrawsIngested        prometheus.Counter
	PredictionsGenerated prometheus.Counter
	StoreFailures        *prometheus.CounterVec // backend, op
	Runs                 *prometheus.CounterVec // mode, result
	HistoryDraws         prometheus.Gauge
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DrawsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_ingested_total",
			Help:      "Draw payloads inserted or updated",
		}),
		PredictionsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_generated_total",
			Help:      "Combinations produced by the prediction service",
		}),
		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Store operations that failed and degraded",
		}, []string{"backend", "op"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by mode and result",
		}, []string{"mode", "result"}),
		HistoryDraws: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_draws",
			Help:      "Draws in the loaded history",
		}),
	}
}

// StoreFailure implements telemetry.FailureRecorder
func (m *Metrics) StoreFailure(backend, op string) {
	m.StoreFailures.WithLabelValues(backend, op).Inc()
}

// RunFinished counts a pipeline run
func (m *Metrics) RunFinished(mode string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Runs.WithLabelValues(mode, result).Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
