// Package middleware provides net/http middleware for chi muxes.
//
// This package includes:
//   - OpenTelemetry server spans named after the matched route
//   - Prometheus request metrics labelled by route pattern
//
// Both read the route pattern from the chi route context after the mux has
// routed the request, so they must be installed with Mux.Use.
//
// # OpenTelemetry Middleware
//
//	mux := chi.NewRouter()
//	mux.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("routekit-explain"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// The tracer and propagator come from the global OpenTelemetry providers
// unless set with WithTracerProvider and WithPropagator.
//
// # Prometheus Metrics
//
//   - routekit_http_requests_total: requests by route, method and status
//   - routekit_http_request_duration_seconds: request duration by route and method
//   - routekit_http_requests_in_flight: requests being served
//
//	mux.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
