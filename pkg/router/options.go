package router

import "log/slog"

// Option configures a Router.
type Option func(*options)

type options struct {
	maxCacheSize int
	backend      BackendKind
	metrics      MetricsSink
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		maxCacheSize: DefaultMaxCacheSize,
		backend:      BackendTree,
		metrics:      NopMetrics{},
	}
}

// WithMaxCacheSize sets the match cache capacity. Zero disables caching;
// negative values are treated as zero.
func WithMaxCacheSize(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxCacheSize = n
	}
}

// WithBackend selects the route table implementation.
//
// Example:
//
//	r := router.New(router.WithBackend(router.BackendChi))
func WithBackend(kind BackendKind) Option {
	return func(o *options) {
		o.backend = kind
	}
}

// WithMetrics sets the sink that receives lookup and cache measurements.
func WithMetrics(sink MetricsSink) Option {
	return func(o *options) {
		if sink != nil {
			o.metrics = sink
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
