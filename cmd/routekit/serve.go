package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/internal/explain"
	"github.com/vango-dev/routekit/pkg/router"
	"github.com/vango-dev/routekit/pkg/telemetry"
)

type serveOptions struct {
	addr         string
	watch        bool
	otlpEndpoint string
	otlpInsecure bool
	sampleRate   float64
	serviceName  string
}

func serveCmd(g *globals) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the explain API for a route table",
		Long: `Start an HTTP server that answers lookups against the route table.

Endpoints:
  GET /match?method=GET&path=/users/42   lookup result as JSON
  GET /routes[?method=GET]              registered routes and cache stats
  GET /healthz                          liveness
  GET /metrics                          Prometheus metrics

With --watch the manifest is reloaded when it changes and the new router
replaces the old one without dropping requests. A manifest that fails to
load or build is reported and the previous routes stay active.

Examples:
  routekit serve
  routekit serve -f api/routes.yaml --addr :9090 --watch
  routekit serve --otlp-endpoint localhost:4317 --otlp-insecure`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.addr, "addr", "a", config.DefaultAddr, "listen address (overrides server.addr)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "reload the manifest when it changes")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "export spans to this OTLP gRPC endpoint")
	flags.BoolVar(&opts.otlpInsecure, "otlp-insecure", false, "connect to the OTLP endpoint without TLS")
	flags.Float64Var(&opts.sampleRate, "sample-rate", 1.0, "fraction of traces to sample")
	flags.StringVar(&opts.serviceName, "service-name", "routekit", "service name reported with spans")

	return cmd
}

func runServe(cmd *cobra.Command, g *globals, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	path, err := g.manifestPath()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink := telemetry.Prometheus(telemetry.WithRegistry(reg))
	build := func(m *config.Manifest) (*router.Router, error) {
		return m.Build(router.WithLogger(g.logger), router.WithMetrics(sink))
	}

	m, err := config.Open(path)
	if err != nil {
		return err
	}

	r, err := build(m)
	if err != nil {
		return err
	}

	srvOpts := []explain.Option{explain.WithLogger(g.logger), explain.WithRegistry(reg)}
	if opts.otlpEndpoint != "" {
		tp, err := setupTracing(ctx, tracingConfig{
			ServiceName:  opts.serviceName,
			Endpoint:     opts.otlpEndpoint,
			SamplingRate: opts.sampleRate,
			Insecure:     opts.otlpInsecure,
		})
		if err != nil {
			return errors.FromError(err, errors.CodeServe).
				WithDetail("Cannot set up the OTLP span exporter").
				WithSuggestion("Check --otlp-endpoint")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				g.logger.Warn("tracer provider shutdown failed", "error", err)
			}
		}()
		srvOpts = append(srvOpts, explain.WithTracerProvider(tp))
	}
	srv := explain.New(r, srvOpts...)

	if opts.watch {
		reloadFailed := func(err error) {
			warn(errOut, "Reload failed, keeping previous routes")
			errors.PrintError(errOut, err)
		}
		watcher, err := config.NewWatcher(path,
			func(next *config.Manifest) {
				r, err := build(next)
				if err != nil {
					reloadFailed(err)
					return
				}
				srv.Swap(r)
			},
			config.WithDebounce(m.Server.ReloadDebounce.Duration()),
			config.WithWatchLogger(g.logger),
			config.WithErrorFunc(reloadFailed),
		)
		if err != nil {
			return errors.FromError(err, errors.CodeServe)
		}
		defer watcher.Stop()
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}

	addr := m.Server.Addr
	if cmd.Flags().Changed("addr") || addr == "" {
		addr = opts.addr
	}

	success(out, "Serving %d routes from %s", r.Len(), m.Path())
	info(out, "Listening on %s (backend %s)", addr, r.Backend())
	if opts.watch {
		info(out, "Watching for changes (debounce %s)", m.Server.ReloadDebounce.Duration())
	}

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return errors.FromError(err, errors.CodeServe).WithDetail("Listen on " + addr)
	}
	return nil
}
