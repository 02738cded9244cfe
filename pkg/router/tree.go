package router

import (
	"slices"
	"sort"
	"strings"
)

// nodeKind identifies what a node matches.
type nodeKind uint8

const (
	kindRoot nodeKind = iota
	kindStatic
	kindParam
	kindCatchAll
)

// noNode marks an absent child or parent index.
const noNode int32 = -1

// rootNode is the arena index of the root.
const rootNode int32 = 0

// node is one path segment's worth of trie state. Nodes live in the tree's
// arena and refer to each other by index.
type node struct {
	kind nodeKind

	// label is the literal for static nodes and the bound name for param and
	// catch-all nodes.
	label string

	// handlers maps method -> handler. Nil until the first registration.
	handlers map[string]Handler

	// statics are static child indices sorted by label.
	statics []int32

	// param is the parametric child (:id), or noNode.
	param int32

	// catchAll is the catch-all child (*path), or noNode.
	catchAll int32

	// parent is used only when pruning.
	parent int32
}

func (n *node) isEmpty() bool {
	return len(n.handlers) == 0 && len(n.statics) == 0 && n.param == noNode && n.catchAll == noNode
}

// segment renders the node in pattern syntax.
func (n *node) segment() segment {
	switch n.kind {
	case kindParam:
		return segment{kind: segParam, value: n.label}
	case kindCatchAll:
		return segment{kind: segCatchAll, value: n.label}
	default:
		return segment{kind: segStatic, value: n.label}
	}
}

// tree is the arena-backed radix tree. It is not safe for concurrent use
// while being mutated; concurrent Find calls on a stable tree are safe.
type tree struct {
	nodes  []node
	free   []int32
	routes int
}

func newTree() *tree {
	t := &tree{}
	t.nodes = append(t.nodes, node{kind: kindRoot, param: noNode, catchAll: noNode, parent: noNode})
	return t
}

// alloc returns the index of a fresh node, reusing a pruned slot if any.
func (t *tree) alloc(kind nodeKind, label string, parent int32) int32 {
	n := node{kind: kind, label: label, param: noNode, catchAll: noNode, parent: parent}
	if k := len(t.free); k > 0 {
		idx := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

// staticChild returns the static child of n labeled literal, or noNode.
func (t *tree) staticChild(n int32, literal string) int32 {
	statics := t.nodes[n].statics
	i, ok := slices.BinarySearchFunc(statics, literal, func(idx int32, lit string) int {
		return strings.Compare(t.nodes[idx].label, lit)
	})
	if !ok {
		return noNode
	}
	return statics[i]
}

// child returns the child of n matching seg exactly, or noNode.
func (t *tree) child(n int32, seg segment) int32 {
	nd := &t.nodes[n]
	switch seg.kind {
	case segParam:
		if nd.param != noNode && t.nodes[nd.param].label == seg.value {
			return nd.param
		}
		return noNode
	case segCatchAll:
		if nd.catchAll != noNode && t.nodes[nd.catchAll].label == seg.value {
			return nd.catchAll
		}
		return noNode
	default:
		return t.staticChild(n, seg.value)
	}
}

// addChild returns the child of n for seg, creating it if needed.
// Conflicts must already have been ruled out by checkConflicts.
func (t *tree) addChild(n int32, seg segment) int32 {
	if c := t.child(n, seg); c != noNode {
		return c
	}

	switch seg.kind {
	case segParam:
		c := t.alloc(kindParam, seg.value, n)
		t.nodes[n].param = c
		return c
	case segCatchAll:
		c := t.alloc(kindCatchAll, seg.value, n)
		t.nodes[n].catchAll = c
		return c
	}

	c := t.alloc(kindStatic, seg.value, n)
	statics := t.nodes[n].statics
	i := sort.Search(len(statics), func(i int) bool {
		return t.nodes[statics[i]].label >= seg.value
	})
	t.nodes[n].statics = slices.Insert(statics, i, c)
	return c
}

// checkConflicts walks p without mutating the tree and reports the first
// dynamic segment that cannot coexist with what is already registered.
func (t *tree) checkConflicts(method string, p pattern) error {
	n := rootNode
	for i, seg := range p.segments {
		nd := &t.nodes[n]

		var existing int32 = noNode
		switch seg.kind {
		case segParam:
			if nd.catchAll != noNode {
				existing = nd.catchAll
			} else if nd.param != noNode && t.nodes[nd.param].label != seg.value {
				existing = nd.param
			}
		case segCatchAll:
			if nd.param != noNode {
				existing = nd.param
			} else if nd.catchAll != noNode && t.nodes[nd.catchAll].label != seg.value {
				existing = nd.catchAll
			}
		}
		if existing != noNode {
			return &RouteConflictError{
				Method:   method,
				Pattern:  p.canonical,
				Position: joinSegments(p.segments[:i+1]),
				Existing: t.nodes[existing].segment().String(),
			}
		}

		if n = t.child(n, seg); n == noNode {
			// Everything below is new.
			return nil
		}
	}
	return nil
}

// Add registers handler for method at pattern. Re-registering an existing
// method and pattern replaces the handler. On error the tree is unchanged.
func (t *tree) Add(method, raw string, handler Handler) error {
	p, err := parsePattern(raw)
	if err != nil {
		return err
	}
	if err := t.checkConflicts(method, p); err != nil {
		return err
	}

	n := rootNode
	for _, seg := range p.segments {
		n = t.addChild(n, seg)
	}

	nd := &t.nodes[n]
	if nd.handlers == nil {
		nd.handlers = make(map[string]Handler, 1)
	}
	if _, ok := nd.handlers[method]; !ok {
		t.routes++
	}
	nd.handlers[method] = handler
	return nil
}

// Remove deletes the handler for method at pattern and prunes nodes left
// without handlers or children. It reports whether anything was removed.
func (t *tree) Remove(method, raw string) bool {
	p, err := parsePattern(raw)
	if err != nil {
		return false
	}

	n := rootNode
	for _, seg := range p.segments {
		if n = t.child(n, seg); n == noNode {
			return false
		}
	}

	nd := &t.nodes[n]
	if _, ok := nd.handlers[method]; !ok {
		return false
	}
	delete(nd.handlers, method)
	t.routes--
	t.prune(n)
	return true
}

// prune releases n and its ancestors for as long as they are empty.
func (t *tree) prune(n int32) {
	for n != rootNode && t.nodes[n].isEmpty() {
		nd := &t.nodes[n]
		parent := nd.parent
		pd := &t.nodes[parent]

		switch nd.kind {
		case kindParam:
			pd.param = noNode
		case kindCatchAll:
			pd.catchAll = noNode
		default:
			if i := slices.Index(pd.statics, n); i >= 0 {
				pd.statics = slices.Delete(pd.statics, i, i+1)
			}
		}

		t.nodes[n] = node{param: noNode, catchAll: noNode, parent: noNode}
		t.free = append(t.free, n)
		n = parent
	}
}

// binding is one bound parameter collected during a walk.
type binding struct {
	name  string
	value string
}

// matcher holds the state of one lookup.
type matcher struct {
	t      *tree
	method string
	path   string
	segs   []string
	starts []int
	binds  []binding
}

// match returns the terminal reached from n for segs[i:] that holds a handler
// for the method, trying static, then param, then catch-all children and
// backtracking out of dead ends.
func (m *matcher) match(n int32, i int) int32 {
	nd := &m.t.nodes[n]
	if i == len(m.segs) {
		if _, ok := nd.handlers[m.method]; ok {
			return n
		}
		return noNode
	}
	seg := m.segs[i]

	if c := m.t.staticChild(n, seg); c != noNode {
		if r := m.match(c, i+1); r != noNode {
			return r
		}
	}

	if nd.param != noNode {
		mark := len(m.binds)
		m.binds = append(m.binds, binding{name: m.t.nodes[nd.param].label, value: seg})
		if r := m.match(nd.param, i+1); r != noNode {
			return r
		}
		m.binds = m.binds[:mark]
	}

	if nd.catchAll != noNode {
		c := &m.t.nodes[nd.catchAll]
		if _, ok := c.handlers[m.method]; ok {
			m.binds = append(m.binds, binding{name: c.label, value: m.path[m.starts[i]:]})
			return nd.catchAll
		}
	}

	return noNode
}

// Find resolves method and path. It never fails; absence is Found == false.
func (t *tree) Find(method, path string) RouteMatch {
	var (
		buf  [16]string
		offs [16]int
	)
	m := matcher{t: t, method: method, path: path}
	m.segs, m.starts = splitOffsets(path, buf[:0], offs[:0])

	n := m.match(rootNode, 0)
	if n == noNode {
		return RouteMatch{}
	}

	result := RouteMatch{Found: true, Handler: t.nodes[n].handlers[method]}
	if len(m.binds) > 0 {
		result.Params = make(map[string]string, len(m.binds))
		for _, b := range m.binds {
			result.Params[b.name] = b.value
		}
	}
	return result
}

// visit calls fn for every terminal reachable from n that matches segs[i:],
// regardless of method.
func (t *tree) visit(n int32, segs []string, i int, fn func(*node)) {
	nd := &t.nodes[n]
	if i == len(segs) {
		if len(nd.handlers) > 0 {
			fn(nd)
		}
		return
	}
	if c := t.staticChild(n, segs[i]); c != noNode {
		t.visit(c, segs, i+1, fn)
	}
	if nd.param != noNode {
		t.visit(nd.param, segs, i+1, fn)
	}
	if nd.catchAll != noNode {
		fn(&t.nodes[nd.catchAll])
	}
}

// Methods returns the sorted methods for which Find would succeed on path.
func (t *tree) Methods(path string) []string {
	var buf [16]string
	segs := splitPath(path, buf[:0])

	var methods []string
	t.visit(rootNode, segs, 0, func(nd *node) {
		for method := range nd.handlers {
			if !slices.Contains(methods, method) {
				methods = append(methods, method)
			}
		}
	})
	sort.Strings(methods)
	return methods
}

// Routes lists every registration sorted by pattern, then method.
func (t *tree) Routes() []Route {
	routes := make([]Route, 0, t.routes)
	var segs []segment

	var walk func(n int32)
	walk = func(n int32) {
		nd := &t.nodes[n]
		if len(nd.handlers) > 0 {
			pattern := joinSegments(segs)
			for method := range nd.handlers {
				routes = append(routes, Route{Method: method, Pattern: pattern})
			}
		}
		for _, c := range nd.statics {
			segs = append(segs, t.nodes[c].segment())
			walk(c)
			segs = segs[:len(segs)-1]
		}
		for _, c := range []int32{nd.param, nd.catchAll} {
			if c == noNode {
				continue
			}
			segs = append(segs, t.nodes[c].segment())
			walk(c)
			segs = segs[:len(segs)-1]
		}
	}
	walk(rootNode)

	sortRoutes(routes)
	return routes
}

// Len returns the number of registrations.
func (t *tree) Len() int {
	return t.routes
}

func sortRoutes(routes []Route) {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
}

// handlerAt returns the handler registered for method at the canonical
// pattern p, if any.
func (t *tree) handlerAt(method string, p pattern) (Handler, bool) {
	n := rootNode
	for _, seg := range p.segments {
		if n = t.child(n, seg); n == noNode {
			return nil, false
		}
	}
	h, ok := t.nodes[n].handlers[method]
	return h, ok
}
