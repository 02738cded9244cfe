package router

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPattern is returned (wrapped) when a route pattern is malformed.
	ErrInvalidPattern = errors.New("router: invalid pattern")

	// ErrRouteConflict is returned (wrapped) when a pattern needs a dynamic
	// matcher that is incompatible with one already registered at the same
	// position.
	ErrRouteConflict = errors.New("router: route conflict")

	// ErrUnknownBackend is returned by ParseBackendKind for unrecognized names.
	ErrUnknownBackend = errors.New("router: unknown backend")
)

// InvalidPatternError describes why a pattern was rejected.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func invalidPattern(pattern, format string, args ...any) *InvalidPatternError {
	return &InvalidPatternError{Pattern: pattern, Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("router: invalid pattern %q: %s", e.Pattern, e.Reason)
}

func (e *InvalidPatternError) Unwrap() error {
	return ErrInvalidPattern
}

// RouteConflictError reports two registrations that need different dynamic
// matchers at the same tree position.
type RouteConflictError struct {
	Method  string
	Pattern string

	// Position is the canonical prefix where the conflict occurs, including
	// the conflicting segment of Pattern.
	Position string

	// Existing is the segment already registered at Position, in pattern syntax.
	Existing string
}

func (e *RouteConflictError) Error() string {
	return fmt.Sprintf("router: %s %s conflicts with existing segment %q at %s",
		e.Method, e.Pattern, e.Existing, e.Position)
}

func (e *RouteConflictError) Unwrap() error {
	return ErrRouteConflict
}
