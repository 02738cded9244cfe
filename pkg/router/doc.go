// Package router resolves HTTP methods and paths to opaque handler
// references.
//
// The router provides:
//   - A radix tree over "/"-delimited segments, stored in a flat arena
//   - Static, parametric (:id) and catch-all (*path) segments
//   - A bounded LRU cache of positive matches, cleared on every mutation
//   - A go-chi backed alternative that can be mutated while serving
//   - Typed binding of parameters into structs
//
// # Patterns
//
//	/users           static
//	/users/:id       binds "id" to one segment
//	/files/*path     binds "path" to the remaining segments ("a/b/c")
//	/assets/*        binds "*"
//
// A leading slash is implied, empty segments are ignored and the empty
// pattern is "/". A catch-all must be the last segment and matches at least
// one segment.
//
// # Priority
//
// At every position a static child is tried before the parametric child,
// which is tried before the catch-all child, independent of registration
// order. A branch that does not end on a handler for the requested method is
// abandoned and the next alternative is tried:
//
//	r.MustAdd("GET", "/users/:id", show).
//		MustAdd("GET", "/users/new", form)
//
//	r.Find("GET", "/users/new") // form
//	r.Find("GET", "/users/42")  // show, Params["id"] == "42"
//
// # Conflicts
//
// A position holds at most one parametric and one catch-all child. Adding a
// parameter whose name differs from the one already registered at that
// position, a catch-all whose name differs, or mixing a parameter and a
// catch-all at the same position fails with a *RouteConflictError.
//
// # Concurrency
//
// Find may be called from many goroutines. Add and Remove are serialized.
// With BackendTree they must not overlap with lookups; register routes at
// startup, or use BackendChi, which publishes an immutable snapshot after
// each change.
package router
