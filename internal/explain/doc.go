// Package explain serves a route table over HTTP for inspection.
//
// Endpoints:
//
//	GET /match?method=GET&path=/users/42   lookup result as JSON
//	GET /routes[?method=GET]              registered routes and cache stats
//	GET /healthz                          liveness
//	GET /metrics                          Prometheus exposition
//
// The router behind the server can be replaced with Swap while requests are
// in flight, which is how `routekit serve --watch` applies manifest edits.
package explain
