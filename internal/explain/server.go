package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/routekit/pkg/middleware"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/telemetry"
)

// ShutdownTimeout bounds graceful shutdown once the serve context is done.
const ShutdownTimeout = 5 * time.Second

// Server answers route lookups over HTTP against a router that can be
// replaced while serving.
type Server struct {
	current  atomic.Pointer[router.Router]
	reloads  atomic.Uint64
	finder   *telemetry.TracedFinder
	registry *prometheus.Registry
	tp       trace.TracerProvider
	logger   *slog.Logger
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the registry served on /metrics and used for HTTP
// request metrics. Defaults to a new registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithTracerProvider sets the tracer provider for request and lookup spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tp = tp
	}
}

// New creates a server for r.
func New(r *router.Router, opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.logger = s.logger.With("component", "explain")
	s.current.Store(r)

	var traceOpts []telemetry.TraceOption
	var otelOpts []middleware.OTelOption
	if s.tp != nil {
		traceOpts = append(traceOpts, telemetry.WithTracerProvider(s.tp))
		otelOpts = append(otelOpts, middleware.WithTracerProvider(s.tp))
	}
	s.finder = telemetry.Trace(liveFinder{s}, traceOpts...)

	otelOpts = append(otelOpts, middleware.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
	}))
	s.handler = s.routes(otelOpts)
	return s
}

// liveFinder resolves against whichever router is current at call time.
type liveFinder struct{ s *Server }

func (f liveFinder) Find(method, path string) router.RouteMatch {
	return f.s.Router().Find(method, path)
}

func (s *Server) routes(otelOpts []middleware.OTelOption) http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Prometheus(middleware.WithRegistry(s.registry)))
	mux.Use(middleware.OpenTelemetry(otelOpts...))

	mux.Get("/match", s.handleMatch)
	mux.Get("/match/*", s.handleMatchPath)
	mux.Get("/routes", s.handleRoutes)
	mux.Get("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry:          s.registry,
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
	return mux
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the router currently answering lookups.
func (s *Server) Router() *router.Router {
	return s.current.Load()
}

// Swap replaces the router. Lookups already running finish on the old one.
func (s *Server) Swap(r *router.Router) {
	s.current.Store(r)
	n := s.reloads.Add(1)
	s.logger.Info("router swapped", "routes", r.Len(), "backend", r.Backend().String(), "reloads", n)
}

// Reloads returns how many times the router has been swapped.
func (s *Server) Reloads() uint64 {
	return s.reloads.Load()
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("explain server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	s.logger.Info("explain server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("explain: shutdown: %w", err)
	}
	return nil
}

// MatchResponse is the answer to a lookup.
type MatchResponse struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Found   bool              `json:"found"`
	Handler string            `json:"handler,omitempty"`
	Params  map[string]string `json:"params,omitempty"`

	// Allowed lists the methods that would match path when this method
	// does not.
	Allowed []string `json:"allowed,omitempty"`
}

// Describe builds the response for a lookup of method and path that
// produced m.
func Describe(r *router.Router, method, path string, m router.RouteMatch) MatchResponse {
	resp := MatchResponse{
		Method: method,
		Path:   path,
		Found:  m.Found,
		Params: m.Params,
	}
	if m.Found {
		resp.Handler = fmt.Sprint(m.Handler)
	} else {
		resp.Allowed = r.Methods(path)
	}
	return resp
}

// RoutesResponse lists the route table.
type RoutesResponse struct {
	Backend string            `json:"backend"`
	Count   int               `json:"count"`
	Routes  []router.Route    `json:"routes"`
	Cache   router.CacheStats `json:"cache"`
	Reloads uint64            `json:"reloads"`
}

// Table lists the routes of r, keeping only those registered for method
// when it is not empty. Routes is never nil.
func Table(r *router.Router, method string) RoutesResponse {
	routes := r.Routes()
	if method = strings.ToUpper(method); method != "" {
		filtered := routes[:0]
		for _, route := range routes {
			if route.Method == method {
				filtered = append(filtered, route)
			}
		}
		routes = filtered
	}
	if routes == nil {
		routes = []router.Route{}
	}
	return RoutesResponse{
		Backend: r.Backend().String(),
		Count:   len(routes),
		Routes:  routes,
		Cache:   r.CacheStats(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing path query parameter"})
		return
	}
	method := strings.ToUpper(q.Get("method"))
	if method == "" {
		method = http.MethodGet
	}

	s.match(w, r, method, path)
}

// matchPaths parses the path form of /match. It is a router like any other.
var matchPaths = router.New(router.WithMaxCacheSize(0)).
	MustAdd(http.MethodGet, "/match/:method/*path", "match")

type matchPathParams struct {
	Method string `param:"method,required"`
	Path   string `param:"path,required"`
}

// handleMatchPath serves /match/{method}/{path...}, the path form of
// /match?method=&path=.
func (s *Server) handleMatchPath(w http.ResponseWriter, r *http.Request) {
	var p matchPathParams
	m := matchPaths.Find(r.Method, r.URL.Path)
	if !m.Found {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected /match/{method}/{path}"})
		return
	}
	if err := m.Bind(&p); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.match(w, r, strings.ToUpper(p.Method), "/"+p.Path)
}

func (s *Server) match(w http.ResponseWriter, r *http.Request, method, path string) {
	rt := s.Router()
	m := s.finder.Find(r.Context(), method, path)
	s.writeJSON(w, http.StatusOK, Describe(rt, method, path, m))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	resp := Table(s.Router(), r.URL.Query().Get("method"))
	resp.Reloads = s.Reloads()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.logger.Debug("failed to write health response", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
