package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/config"
	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┬ ┬┌┬┐┌─┐┬┌─┬┌┬┐
  ├┬┘│ ││ │ │ ├┤ ├┴┐│ │
  ┴└─└─┘└─┘ ┴ └─┘┴ ┴┴ ┴
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	file     string
	logLevel string
	noColor  bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rootCmd := &cobra.Command{
		Use:   "routekit",
		Short: "Inspect, benchmark and serve HTTP route tables",
		Long: `routekit loads a route manifest (routes.yaml) into a radix-tree router
and lets you query it from the command line or over HTTP.

  • Look up paths and see the bound parameters
  • List the route table
  • Benchmark lookups with and without the route cache
  • Serve an explain API with Prometheus metrics and tracing`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.noColor {
				errors.DisableColors()
			}
			return g.setupLogger(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.file, "file", "f", "", "route manifest (default: routes.yaml in this or a parent directory)")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVar(&g.noColor, "no-color", false, "disable colored error output")

	rootCmd.AddCommand(
		matchCmd(g),
		routesCmd(g),
		benchCmd(g),
		serveCmd(g),
		versionCmd(),
	)

	return rootCmd
}

func (g *globals) setupLogger(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return errors.New(errors.CodeInvalidSetting).
			WithDetail(fmt.Sprintf("Unknown log level %q", g.logLevel)).
			WithSuggestion("Use one of debug, info, warn or error")
	}
	g.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// manifestPath returns the -f flag, or the nearest routes.yaml.
func (g *globals) manifestPath() (string, error) {
	if g.file != "" {
		return g.file, nil
	}
	return config.FindManifest(".")
}

// loadManifest reads, overrides and validates the manifest.
func (g *globals) loadManifest() (*config.Manifest, error) {
	path, err := g.manifestPath()
	if err != nil {
		return nil, err
	}
	return config.Open(path)
}

// loadRouter loads the manifest and builds its router. opts are applied
// after the manifest settings.
func (g *globals) loadRouter(opts ...router.Option) (*config.Manifest, *router.Router, error) {
	m, err := g.loadManifest()
	if err != nil {
		return nil, nil, err
	}
	opts = append([]router.Option{router.WithLogger(g.logger)}, opts...)
	r, err := m.Build(opts...)
	if err != nil {
		return nil, nil, err
	}
	return m, r, nil
}

// printBanner prints the routekit banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
