package router

import "time"

// MetricsSink receives router measurements. Implementations must be safe for
// concurrent use. See the telemetry package for a Prometheus implementation.
type MetricsSink interface {
	// ObserveFind records one lookup. cached is true when it was served from
	// the match cache.
	ObserveFind(found, cached bool, d time.Duration)

	// CacheEvicted records one LRU eviction.
	CacheEvicted()

	// CacheSize records the current number of cached entries.
	CacheSize(n int)

	// RoutesChanged records a successful "add" or "remove" and the resulting
	// number of registrations.
	RoutesChanged(op string, total int)
}

// NopMetrics discards every measurement. Routers built without WithMetrics
// use it and skip timing lookups.
type NopMetrics struct{}

func (NopMetrics) ObserveFind(bool, bool, time.Duration) {}
func (NopMetrics) CacheEvicted()                         {}
func (NopMetrics) CacheSize(int)                         {}
func (NopMetrics) RoutesChanged(string, int)             {}

var _ MetricsSink = NopMetrics{}
