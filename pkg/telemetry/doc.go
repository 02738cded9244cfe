// Package telemetry connects a router.Router to Prometheus and
// OpenTelemetry.
//
// Prometheus returns a router.MetricsSink that is passed to router.New:
//
//	reg := prometheus.NewRegistry()
//	r := router.New(router.WithMetrics(telemetry.Prometheus(telemetry.WithRegistry(reg))))
//
// Metrics collected (default namespace "routekit", subsystem "router"):
//   - routekit_router_lookups_total: lookups by result (hit, miss, not_found)
//   - routekit_router_lookup_duration_seconds: lookup latency by result
//   - routekit_router_cache_evictions_total: LRU evictions
//   - routekit_router_cache_entries: cached matches
//   - routekit_router_route_changes_total: successful adds and removes
//   - routekit_router_routes: registered routes
//
// TracedFinder wraps any router.Finder and records a span per lookup.
package telemetry
