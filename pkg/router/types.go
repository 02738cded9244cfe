package router

// Handler is an opaque handler reference. The router stores and returns it
// verbatim and never inspects or invokes it.
type Handler = any

// RouteMatch is the result of a lookup.
type RouteMatch struct {
	// Found reports whether a route matched both the path and the method.
	Found bool

	// Handler is the registered handler when Found is true.
	Handler Handler

	// Params holds bound parameter values keyed by name. It is nil when the
	// matched route has no parameters.
	Params map[string]string
}

// Param returns the named parameter, or "" when it was not bound.
func (m RouteMatch) Param(name string) string {
	return m.Params[name]
}

// clone returns a copy of m that shares no maps with it.
func (m RouteMatch) clone() RouteMatch {
	if m.Params == nil {
		return m
	}
	params := make(map[string]string, len(m.Params))
	for k, v := range m.Params {
		params[k] = v
	}
	m.Params = params
	return m
}

// Route is one registration, with Pattern in canonical form.
type Route struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// CacheStats is a point-in-time view of the match cache.
type CacheStats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Finder resolves a method and path to a match.
type Finder interface {
	Find(method, path string) RouteMatch
}
