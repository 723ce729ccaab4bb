// Package metrics provides metrics collection for the retrieval engine.
package metrics

// Collector is the interface for engine metrics collection. The Prometheus
// implementation is used by the host binary; components constructed without
// a collector fall back to the no-op implementation.
type Collector interface {
	// RecordSearch records a completed search or feed request with the
	// degradation-ladder tier that produced it.
	RecordSearch(operation string, algorithm string, durationMs int64)
	// RecordPoolAcquire records a pool checkout attempt outcome
	// ("ok", "exhausted", "error").
	RecordPoolAcquire(status string)
	// SetPoolUtilization sets the current pool utilization percentage.
	SetPoolUtilization(pct float64)
	// RecordCache records a cache lookup outcome ("hit" or "miss").
	RecordCache(cache string, outcome string)
}
