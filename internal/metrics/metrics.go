// Package metrics exposes Prometheus instrumentation for the coverage
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one service instance. Each instance
// carries its own registry so tests and repeated constructions never
// collide.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	StoreFetches    prometheus.Counter
	IndexRefreshes  prometheus.Counter
}

// New creates a metric set on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "covspect_requests_total",
			Help: "Requests served, by operation and outcome.",
		}, []string{"operation", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "covspect_request_duration_seconds",
			Help:    "Request latency, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "covspect_cache_hits_total",
			Help: "Result cache hits, by operation.",
		}, []string{"operation"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "covspect_cache_misses_total",
			Help: "Result cache misses, by operation.",
		}, []string{"operation"}),
		StoreFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "covspect_store_fetches_total",
			Help: "Report blobs fetched from the backing store.",
		}),
		IndexRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "covspect_index_refreshes_total",
			Help: "Revision index refreshes.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestDuration,
		m.CacheHits,
		m.CacheMisses,
		m.StoreFetches,
		m.IndexRefreshes,
	)
	return m
}

// Handler serves the /metrics scrape endpoint for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
