package router

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Router resolves (method, path) pairs to handlers. It composes a Backend
// with an LRU cache of positive matches that is cleared on every successful
// mutation.
//
// Find is safe for concurrent use. Add and Remove are serialized with each
// other; with BackendTree they must not run while lookups are in flight.
type Router struct {
	mu      sync.Mutex
	backend Backend
	kind    BackendKind
	cache   *matchCache // nil when caching is disabled

	metrics MetricsSink
	timed   bool
	logger  *slog.Logger
}

// New creates an empty router.
//
// Example:
//
//	r := router.New(router.WithMaxCacheSize(5000))
//	r.MustAdd("GET", "/users/:id", showUser)
//	m := r.Find("GET", "/users/42") // m.Params["id"] == "42"
func New(opts ...Option) *Router {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "router")

	backend, err := NewBackend(o.backend)
	if err != nil {
		logger.Warn("falling back to tree backend", "error", err)
		o.backend = BackendTree
		backend = newTree()
	}

	r := &Router{
		backend: backend,
		kind:    o.backend,
		metrics: o.metrics,
		logger:  logger,
	}
	if _, nop := o.metrics.(NopMetrics); !nop {
		r.timed = true
	}
	if o.maxCacheSize > 0 {
		r.cache = newMatchCache(o.maxCacheSize, r.metrics.CacheEvicted)
	}
	return r
}

// Add registers handler for method at pattern. Registering the same method
// and pattern again replaces the handler.
//
// Patterns are "/"-delimited. ":name" matches one segment and binds it;
// "*name" (or a bare "*") matches the remaining one or more segments and
// must come last. Malformed patterns return an *InvalidPatternError and
// incompatible dynamic segments a *RouteConflictError; in both cases the
// route table is unchanged.
func (r *Router) Add(method, pattern string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Add(method, pattern, handler); err != nil {
		r.logger.Debug("route rejected", "method", method, "pattern", pattern, "error", err)
		return err
	}
	r.invalidate()

	total := r.backend.Len()
	r.metrics.RoutesChanged("add", total)
	r.logger.Debug("route added", "method", method, "pattern", pattern, "routes", total)
	return nil
}

// MustAdd is like Add but panics on error. It returns r for chaining.
func (r *Router) MustAdd(method, pattern string, handler Handler) *Router {
	if err := r.Add(method, pattern, handler); err != nil {
		panic(fmt.Sprintf("router: MustAdd(%s %s): %v", method, pattern, err))
	}
	return r
}

// Remove deletes the registration for method at pattern. The pattern must
// be spelled as it was added (same literals and parameter names). It
// reports whether a registration was removed.
func (r *Router) Remove(method, pattern string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.backend.Remove(method, pattern) {
		return false
	}
	r.invalidate()

	total := r.backend.Len()
	r.metrics.RoutesChanged("remove", total)
	r.logger.Debug("route removed", "method", method, "pattern", pattern, "routes", total)
	return true
}

// invalidate clears the match cache. Callers hold r.mu.
func (r *Router) invalidate() {
	if r.cache == nil {
		return
	}
	r.cache.clear()
	r.metrics.CacheSize(0)
}

// Find resolves method and path. It never fails: a path with no route, or
// a route without a handler for method, yields Found == false. The returned
// Params map is owned by the caller.
func (r *Router) Find(method, path string) RouteMatch {
	var start time.Time
	if r.timed {
		start = time.Now()
	}

	if r.cache == nil {
		m := r.backend.Find(method, path)
		r.observe(m.Found, false, start)
		return m
	}

	key := cacheKey(method, path)
	m, generation, ok := r.cache.get(key)
	if ok {
		r.observe(true, true, start)
		return m
	}

	m = r.backend.Find(method, path)
	if m.Found {
		if n, stored := r.cache.set(key, m, generation); stored {
			r.metrics.CacheSize(n)
		}
	}
	r.observe(m.Found, false, start)
	return m
}

func (r *Router) observe(found, cached bool, start time.Time) {
	if !r.timed {
		return
	}
	r.metrics.ObserveFind(found, cached, time.Since(start))
}

// Methods returns the sorted methods registered for routes matching path.
// Callers use it to tell "no route" from "method not allowed".
func (r *Router) Methods(path string) []string {
	return r.backend.Methods(path)
}

// Routes lists every registration sorted by pattern, then method.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Routes()
}

// Len returns the number of registrations.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Len()
}

// Backend returns the kind of route table in use.
func (r *Router) Backend() BackendKind {
	return r.kind
}

// CacheStats returns a snapshot of cache statistics. With caching disabled
// every field is zero.
func (r *Router) CacheStats() CacheStats {
	if r.cache == nil {
		return CacheStats{}
	}
	return r.cache.stats()
}

var _ Finder = (*Router)(nil)
