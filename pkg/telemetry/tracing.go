package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/routekit/pkg/router"
)

// Default tracer name for route lookups.
const defaultTracerName = "routekit/router"

// SpanName is the name of the span recorded for each lookup.
const SpanName = "router.find"

// Span attribute keys.
const (
	AttrMethod = attribute.Key("routekit.method")
	AttrPath   = attribute.Key("routekit.path")
	AttrFound  = attribute.Key("routekit.found")
	AttrParams = attribute.Key("routekit.params")
)

// TraceConfig configures a TracedFinder.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "routekit/router").
	TracerName string

	// TracerProvider supplies the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// IncludePath records the concrete path as a span attribute.
	// Enabled by default; paths may carry identifiers.
	IncludePath bool
}

// TraceOption configures a TracedFinder.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(c *TraceConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludePath enables/disables recording the path.
func WithIncludePath(include bool) TraceOption {
	return func(c *TraceConfig) {
		c.IncludePath = include
	}
}

func defaultTraceConfig() TraceConfig {
	return TraceConfig{
		TracerName:  defaultTracerName,
		IncludePath: true,
	}
}

// TracedFinder records a span around every lookup of the wrapped Finder.
type TracedFinder struct {
	finder      router.Finder
	tracer      trace.Tracer
	includePath bool
}

// Trace wraps finder.
//
// Example:
//
//	tf := telemetry.Trace(r, telemetry.WithTracerName("api-gateway"))
//	m := tf.Find(req.Context(), req.Method, req.URL.Path)
func Trace(finder router.Finder, opts ...TraceOption) *TracedFinder {
	config := defaultTraceConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &TracedFinder{
		finder:      finder,
		tracer:      tp.Tracer(config.TracerName),
		includePath: config.IncludePath,
	}
}

// Find resolves method and path inside a span that is a child of any span
// in ctx. A miss leaves the span status unset and adds a "route not found"
// event.
func (f *TracedFinder) Find(ctx context.Context, method, path string) router.RouteMatch {
	attrs := []attribute.KeyValue{AttrMethod.String(method)}
	if f.includePath {
		attrs = append(attrs, AttrPath.String(path))
	}

	_, span := f.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	m := f.finder.Find(method, path)
	span.SetAttributes(AttrFound.Bool(m.Found), AttrParams.Int(len(m.Params)))
	if m.Found {
		span.SetStatus(codes.Ok, "")
	} else {
		span.AddEvent("route not found")
	}
	return m
}
