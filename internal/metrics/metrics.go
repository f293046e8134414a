package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EventsBuffered prometheus.Counter
	EventsFlushed  prometheus.Counter
	FlushesTotal   *prometheus.CounterVec
	BufferLength   prometheus.Gauge

	SummaryCacheHits   prometheus.Counter
	SummaryCacheMisses prometheus.Counter

	EventsPruned   prometheus.Counter
	SessionsPruned prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics registry, creating it on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			}, []string{"method", "route", "status"}),
			HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by method, route and status",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route", "status"}),

			EventsBuffered: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analytics_events_buffered_total",
				Help: "Events accepted into the in-memory buffer",
			}),
			EventsFlushed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analytics_events_flushed_total",
				Help: "Events persisted by buffer flushes",
			}),
			FlushesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "analytics_flushes_total",
				Help: "Buffer flush attempts by outcome",
			}, []string{"outcome"}),
			BufferLength: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "analytics_buffer_length",
				Help: "Current number of buffered events",
			}),

			SummaryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analytics_summary_cache_hits_total",
				Help: "Summary reads served from cache",
			}),
			SummaryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analytics_summary_cache_misses_total",
				Help: "Summary reads that recomputed the rollup",
			}),

			EventsPruned: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analytics_events_pruned_total",
				Help: "Raw events deleted by retention pruning",
			}),
			SessionsPruned: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analytics_sessions_pruned_total",
				Help: "Sessions deleted by retention pruning",
			}),
		}
	})
	return instance
}
