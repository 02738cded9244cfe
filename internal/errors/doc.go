// Package errors provides coded, actionable errors for the routekit CLI.
//
// Errors carry:
//   - A code (e.g., "R001") mapping to a message, detail and hint
//   - The manifest file and line that caused them, with surrounding lines
//   - The underlying router error, reachable through errors.Is/As
//
// # Error Codes
//
//	R001  invalid route pattern          (router.ErrInvalidPattern)
//	R002  route conflict                 (router.ErrRouteConflict)
//	R003  manifest cannot be read
//	R004  manifest is not valid YAML/JSON
//	R005  invalid router setting
//	R006  invalid route entry
//	R007  explain server failed
//
// # Usage
//
//	err := errors.FromError(addErr, errors.CodeInvalidRoute).
//	    WithLocation("routes.yaml", 12, 5)
//	errors.PrintError(os.Stderr, err)
package errors
