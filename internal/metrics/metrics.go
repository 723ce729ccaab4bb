package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector provides Prometheus metrics collection for engine
// operations.
type PrometheusCollector struct {
	searchesTotal   *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	poolAcquires    *prometheus.CounterVec
	poolUtilization prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewCollector creates a new Prometheus metrics collector with its own
// registry.
func NewCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curio_searches_total",
			Help: "Total number of search and feed requests by operation and algorithm tier",
		},
		[]string{"operation", "algorithm"},
	)

	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curio_search_duration_seconds",
			Help:    "Duration of search and feed requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"operation"},
	)

	poolAcquires := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curio_pool_acquires_total",
			Help: "Total number of pool checkout attempts by outcome",
		},
		[]string{"status"},
	)

	poolUtilization := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "curio_pool_utilization_pct",
			Help: "Current connection pool utilization percentage",
		},
	)

	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curio_cache_lookups_total",
			Help: "Total number of cache lookups by cache name and outcome",
		},
		[]string{"cache", "outcome"},
	)

	registry.MustRegister(searchesTotal)
	registry.MustRegister(searchDuration)
	registry.MustRegister(poolAcquires)
	registry.MustRegister(poolUtilization)
	registry.MustRegister(cacheLookups)

	return &PrometheusCollector{
		searchesTotal:   searchesTotal,
		searchDuration:  searchDuration,
		poolAcquires:    poolAcquires,
		poolUtilization: poolUtilization,
		cacheLookups:    cacheLookups,
		registry:        registry,
	}
}

// RecordSearch records a completed search or feed request.
func (m *PrometheusCollector) RecordSearch(operation string, algorithm string, durationMs int64) {
	m.searchesTotal.WithLabelValues(operation, algorithm).Inc()
	m.searchDuration.WithLabelValues(operation).Observe(float64(durationMs) / 1000.0)
}

// RecordPoolAcquire records a pool checkout attempt outcome.
func (m *PrometheusCollector) RecordPoolAcquire(status string) {
	m.poolAcquires.WithLabelValues(status).Inc()
}

// SetPoolUtilization sets the current pool utilization percentage.
func (m *PrometheusCollector) SetPoolUtilization(pct float64) {
	m.poolUtilization.Set(pct)
}

// RecordCache records a cache lookup outcome.
func (m *PrometheusCollector) RecordCache(cache string, outcome string) {
	m.cacheLookups.WithLabelValues(cache, outcome).Inc()
}

// Registry returns the Prometheus registry for HTTP exposure.
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}
