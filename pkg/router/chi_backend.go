package router

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// chiBackend keeps registrations in a tree, which also enforces the conflict
// rules, and serves lookups from immutable go-chi muxes compiled from it.
// Mutations drop the compiled snapshot; the next lookup compiles a new one.
// Lookups that already loaded the old snapshot keep using it.
type chiBackend struct {
	mu       sync.Mutex
	registry *tree
	snapshot atomic.Pointer[chiSnapshot]
	contexts sync.Pool
}

// chiSnapshot is one compiled view of the registry.
type chiSnapshot struct {
	methods map[string]*chiMethod
}

// chiMethod is the mux for a single method plus its routes keyed by the
// chi pattern they were registered under.
type chiMethod struct {
	mux    *chi.Mux
	routes map[string]chiRoute
}

type chiRoute struct {
	segments []segment
	handler  Handler
}

// noopHandler satisfies chi's registration API. It is never served.
var noopHandler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

func newChiBackend() *chiBackend {
	b := &chiBackend{registry: newTree()}
	b.contexts.New = func() any {
		return chi.NewRouteContext()
	}
	return b
}

func (b *chiBackend) Add(method, pattern string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.registry.Add(method, pattern, handler); err != nil {
		return err
	}
	b.snapshot.Store(nil)
	return nil
}

func (b *chiBackend) Remove(method, pattern string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.registry.Remove(method, pattern) {
		return false
	}
	b.snapshot.Store(nil)
	return true
}

func (b *chiBackend) Find(method, path string) RouteMatch {
	cm, ok := b.current().methods[method]
	if !ok {
		return RouteMatch{}
	}

	var (
		buf  [16]string
		offs [16]int
	)
	segs, starts := splitOffsets(path, buf[:0], offs[:0])
	return b.find(cm, path, segs, starts)
}

func (b *chiBackend) find(cm *chiMethod, path string, segs []string, starts []int) RouteMatch {
	rctx := b.contexts.Get().(*chi.Context)
	rctx.Reset()
	// Every route is registered for all methods on a per-method mux, so the
	// method passed to chi only has to be one it knows.
	chiPattern := cm.mux.Find(rctx, http.MethodGet, "/"+strings.Join(segs, "/"))
	b.contexts.Put(rctx)

	route, ok := cm.routes[chiPattern]
	if !ok {
		return RouteMatch{}
	}
	return route.bind(path, segs, starts)
}

func (b *chiBackend) Methods(path string) []string {
	snap := b.current()

	var (
		buf  [16]string
		offs [16]int
	)
	segs, starts := splitOffsets(path, buf[:0], offs[:0])

	var methods []string
	for method, cm := range snap.methods {
		if b.find(cm, path, segs, starts).Found {
			methods = append(methods, method)
		}
	}
	sort.Strings(methods)
	return methods
}

func (b *chiBackend) Routes() []Route {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Routes()
}

func (b *chiBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Len()
}

// current returns the live snapshot, compiling one if a mutation dropped it.
func (b *chiBackend) current() *chiSnapshot {
	if snap := b.snapshot.Load(); snap != nil {
		return snap
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if snap := b.snapshot.Load(); snap != nil {
		return snap
	}
	snap := b.compile()
	b.snapshot.Store(snap)
	return snap
}

// compile builds a snapshot from the registry. Callers hold b.mu.
func (b *chiBackend) compile() *chiSnapshot {
	snap := &chiSnapshot{methods: make(map[string]*chiMethod)}

	for _, r := range b.registry.Routes() {
		// Registry patterns are canonical and always parse.
		p, err := parsePattern(r.Pattern)
		if err != nil {
			continue
		}
		handler, ok := b.registry.handlerAt(r.Method, p)
		if !ok {
			continue
		}

		cm, ok := snap.methods[r.Method]
		if !ok {
			cm = &chiMethod{mux: chi.NewMux(), routes: make(map[string]chiRoute)}
			snap.methods[r.Method] = cm
		}

		chiPattern := toChiPattern(p.segments)
		cm.mux.Handle(chiPattern, noopHandler)
		cm.routes[chiPattern] = chiRoute{segments: p.segments, handler: handler}
	}
	return snap
}

// toChiPattern renders segments in chi syntax: "/users/{id}/files/*".
func toChiPattern(segs []segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		switch s.kind {
		case segParam:
			b.WriteByte('{')
			b.WriteString(s.value)
			b.WriteByte('}')
		case segCatchAll:
			b.WriteByte('*')
		default:
			b.WriteString(s.value)
		}
	}
	return b.String()
}

// bind aligns path segments with the route and collects parameters. A
// catch-all must consume at least one segment and binds the rest of path
// from where that segment starts.
func (r chiRoute) bind(path string, segs []string, starts []int) RouteMatch {
	var params map[string]string
	set := func(name, value string) {
		if params == nil {
			params = make(map[string]string, len(r.segments))
		}
		params[name] = value
	}

	for i, s := range r.segments {
		if i >= len(segs) {
			return RouteMatch{}
		}
		switch s.kind {
		case segStatic:
			if segs[i] != s.value {
				return RouteMatch{}
			}
		case segParam:
			set(s.value, segs[i])
		case segCatchAll:
			set(s.value, path[starts[i]:])
			return RouteMatch{Found: true, Handler: r.handler, Params: params}
		}
	}
	if len(segs) != len(r.segments) {
		return RouteMatch{}
	}
	return RouteMatch{Found: true, Handler: r.handler, Params: params}
}
