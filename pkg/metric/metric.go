// Package metric exposes chart build metrics to Prometheus
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raykavin/chartshot/pkg/core"
)

// Metrics holds the collectors of one builder. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	BuildsTotal   *prometheus.CounterVec   // labels: result
	BuildDuration prometheus.Histogram     // whole build
	StageDuration *prometheus.HistogramVec // labels: stage
	FailuresTotal *prometheus.CounterVec   // labels: stage
	ImageBytes    prometheus.Histogram
	BarsPerBuild  prometheus.Histogram
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartshot_builds_total",
			Help: "Chart builds by result",
		}, []string{"result"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartshot_build_duration_seconds",
			Help:    "End to end chart build latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chartshot_stage_duration_seconds",
			Help:    "Latency of each build stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartshot_failures_total",
			Help: "Failed builds by stage",
		}, []string{"stage"}),
		ImageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartshot_image_bytes",
			Help:    "Size of the composed PNG",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),
		BarsPerBuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartshot_bars_per_build",
			Help:    "Number of bars per build request",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
		}),
	}

	m.registry.MustRegister(
		m.BuildsTotal,
		m.BuildDuration,
		m.StageDuration,
		m.FailuresTotal,
		m.ImageBytes,
		m.BarsPerBuild,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage core.Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// ObserveBuild records a successful build
func (m *Metrics) ObserveBuild(d time.Duration, bars, size int) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues("ok").Inc()
	m.BuildDuration.Observe(d.Seconds())
	m.BarsPerBuild.Observe(float64(bars))
	m.ImageBytes.Observe(float64(size))
}

// Failed records a build that failed at the given stage
func (m *Metrics) Failed(stage core.Stage) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues("failed").Inc()
	m.FailuresTotal.WithLabelValues(string(stage)).Inc()
}
