// Package metrics exposes the pipeline's Prometheus instrumentation: one
// registry, wired into every stage that has an external-facing cost
// worth watching (provider searches, monitor ticks, ingest runs,
// background tasks). Nothing here is spec-mandated functionality; it is
// the ambient observability layer every component in this module is
// expected to carry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the metrics this module emits and the *http.Handler
// that serves them in the Prometheus text exposition format.
type Registry struct {
	registry *prometheus.Registry

	SearchRequestsTotal   *prometheus.CounterVec
	SearchDurationSeconds *prometheus.HistogramVec

	MonitorTicksTotal     *prometheus.CounterVec
	MonitorArticlesFound  prometheus.Counter
	MonitorAlertsInserted prometheus.Counter

	IngestRunsTotal       prometheus.Counter
	IngestArticlesTotal   *prometheus.CounterVec
	IngestDurationSeconds prometheus.Histogram

	TasksRunningGauge prometheus.Gauge
	TasksTotal        *prometheus.CounterVec
}

// New builds a fresh registry with every metric registered under it.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		SearchRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total search provider requests, labeled by provider and outcome.",
		}, []string{"provider", "outcome"}),
		SearchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsmonitor",
			Subsystem: "search",
			Name:      "request_duration_seconds",
			Help:      "Search provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		MonitorTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "monitor",
			Name:      "ticks_total",
			Help:      "Keyword monitor ticks, labeled by outcome (completed, aborted).",
		}, []string{"outcome"}),
		MonitorArticlesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "monitor",
			Name:      "articles_found_total",
			Help:      "Articles discovered across all monitor ticks.",
		}),
		MonitorAlertsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "monitor",
			Name:      "alerts_inserted_total",
			Help:      "Keyword alerts newly inserted across all monitor ticks.",
		}),
		IngestRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Auto-ingest pipeline runs started.",
		}),
		IngestArticlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "ingest",
			Name:      "articles_total",
			Help:      "Articles processed by auto-ingest, labeled by terminal status.",
		}, []string{"status"}),
		IngestDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsmonitor",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Auto-ingest run wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		TasksRunningGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "newsmonitor",
			Subsystem: "tasks",
			Name:      "running",
			Help:      "Background tasks currently running.",
		}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsmonitor",
			Subsystem: "tasks",
			Name:      "total",
			Help:      "Background tasks completed, labeled by terminal status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		r.SearchRequestsTotal, r.SearchDurationSeconds,
		r.MonitorTicksTotal, r.MonitorArticlesFound, r.MonitorAlertsInserted,
		r.IngestRunsTotal, r.IngestArticlesTotal, r.IngestDurationSeconds,
		r.TasksRunningGauge, r.TasksTotal,
	)

	return r
}

// Handler serves the registry's metrics in the Prometheus text format,
// ready to mount at GET /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
