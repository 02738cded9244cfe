package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/routekit/pkg/router"
)

// Lookup results used as the "result" label.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultNotFound = "not_found"
)

// MetricsConfig configures the Prometheus sink.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "routekit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "router").
	Subsystem string

	// ConstLabels are constant labels added to all metrics. Use them to tell
	// several routers on one registry apart.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for lookup duration.
	// Default: DefaultLookupBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// DefaultLookupBuckets span 100ns to 1ms.
var DefaultLookupBuckets = []float64{1e-7, 2.5e-7, 5e-7, 1e-6, 2.5e-6, 5e-6, 1e-5, 2.5e-5, 1e-4, 1e-3}

// MetricsOption configures the Prometheus sink.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "routekit",
		Subsystem: "router",
		Buckets:   DefaultLookupBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a router.MetricsSink backed by Prometheus collectors.
type Metrics struct {
	lookups      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	evictions    prometheus.Counter
	cacheEntries prometheus.Gauge
	changes      *prometheus.CounterVec
	routes       prometheus.Gauge
}

var _ router.MetricsSink = (*Metrics)(nil)

// Prometheus creates a metrics sink and registers its collectors.
//
// Registering a second sink with the same names and labels on one registry
// reuses the collectors already there, so a router rebuilt on reload keeps
// reporting into the same series.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	return &Metrics{
		lookups: register(config.Registry, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lookups_total",
			Help:        "Total number of route lookups by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"})),

		duration: register(config.Registry, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lookup_duration_seconds",
			Help:        "Route lookup duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"result"})),

		evictions: register(config.Registry, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_evictions_total",
			Help:        "Total number of match cache evictions",
			ConstLabels: config.ConstLabels,
		})),

		cacheEntries: register(config.Registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_entries",
			Help:        "Number of cached route matches",
			ConstLabels: config.ConstLabels,
		})),

		changes: register(config.Registry, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "route_changes_total",
			Help:        "Total number of route table changes by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"})),

		routes: register(config.Registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routes",
			Help:        "Number of registered routes",
			ConstLabels: config.ConstLabels,
		})),
	}
}

// register registers c, or returns the equal collector that is already
// registered. Any other registration error panics, like MustRegister.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) ObserveFind(found, cached bool, d time.Duration) {
	result := ResultMiss
	switch {
	case cached:
		result = ResultHit
	case !found:
		result = ResultNotFound
	}
	m.lookups.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) CacheEvicted() {
	m.evictions.Inc()
}

func (m *Metrics) CacheSize(n int) {
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) RoutesChanged(op string, total int) {
	m.changes.WithLabelValues(op).Inc()
	m.routes.Set(float64(total))
}
