package metrics

// NoopCollector discards all metrics. It is the default for components
// constructed without an explicit collector.
type NoopCollector struct{}

// NewNoopCollector creates a no-op collector.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

// RecordSearch does nothing.
func (n *NoopCollector) RecordSearch(string, string, int64) {}

// RecordPoolAcquire does nothing.
func (n *NoopCollector) RecordPoolAcquire(string) {}

// SetPoolUtilization does nothing.
func (n *NoopCollector) SetPoolUtilization(float64) {}

// RecordCache does nothing.
func (n *NoopCollector) RecordCache(string, string) {}
