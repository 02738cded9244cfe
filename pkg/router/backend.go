package router

import (
	"fmt"
	"strings"
)

// Backend is a route table implementation. Both backends accept and reject
// the same patterns and return the same matches; they differ in how they
// behave under mutation.
type Backend interface {
	// Add registers handler for method at pattern, replacing any existing
	// handler for the same method and pattern. On error nothing changes.
	Add(method, pattern string, handler Handler) error

	// Find resolves a concrete path.
	Find(method, path string) RouteMatch

	// Remove deletes a registration and reports whether it existed.
	Remove(method, pattern string) bool

	// Methods returns the sorted methods for which Find succeeds on path.
	Methods(path string) []string

	// Routes lists registrations sorted by pattern, then method.
	Routes() []Route

	// Len returns the number of registrations.
	Len() int
}

var (
	_ Backend = (*tree)(nil)
	_ Backend = (*chiBackend)(nil)
)

// BackendKind selects a Backend implementation.
type BackendKind int

const (
	// BackendTree is the arena radix tree. Mutating it while lookups are in
	// flight is not safe.
	BackendTree BackendKind = iota

	// BackendChi compiles routes into go-chi muxes and swaps in a new
	// snapshot after each mutation, so it may be mutated while serving.
	BackendChi
)

func (k BackendKind) String() string {
	switch k {
	case BackendTree:
		return "tree"
	case BackendChi:
		return "chi"
	default:
		return fmt.Sprintf("BackendKind(%d)", int(k))
	}
}

// ParseBackendKind parses a backend name ("tree" or "chi", case-insensitive).
// An empty name selects BackendTree.
func ParseBackendKind(name string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tree":
		return BackendTree, nil
	case "chi":
		return BackendChi, nil
	default:
		return BackendTree, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// NewBackend returns an empty backend of the given kind.
func NewBackend(kind BackendKind) (Backend, error) {
	switch kind {
	case BackendTree:
		return newTree(), nil
	case BackendChi:
		return newChiBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, kind)
	}
}
