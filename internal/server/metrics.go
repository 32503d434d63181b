package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/scrapeflow/internal/model"
	"github.com/nao1215/scrapeflow/internal/pipeline"
)

const metricsNamespace = "scrapeflow"

// Metrics holds the Prometheus collectors of one server.
// Each Metrics has its own registry so that servers and tests do not share
// global state.
type Metrics struct {
	registry *prometheus.Registry

	// RunsTotal counts finished runs by status.
	RunsTotal *prometheus.CounterVec

	// StepDuration measures step duration by step and outcome.
	StepDuration *prometheus.HistogramVec

	// RunsInFlight is the number of runs currently executing.
	RunsInFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of finished workflow runs",
			},
			[]string{"status"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of workflow steps in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"step", "outcome"},
		),
		RunsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "runs_in_flight",
				Help:      "Number of workflow runs currently executing",
			},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// OnStep records the duration of finished steps.
func (m *Metrics) OnStep(e pipeline.StepEvent) {
	if e.Phase == pipeline.PhaseStarted {
		return
	}
	m.StepDuration.WithLabelValues(e.Step, string(e.Phase)).Observe(e.Elapsed.Seconds())
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(run *model.Run) {
	m.RunsTotal.WithLabelValues(run.Status.String()).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
