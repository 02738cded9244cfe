package main

import (
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/explain"
)

func matchCmd(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match METHOD PATH...",
		Short: "Look up paths in the route table",
		Long: `Look up one or more request paths and print the handler and parameters
of the route each one matches.

Examples:
  routekit match GET /users/42
  routekit match -f api/routes.yaml GET /static/css/app.css /healthz
  routekit match --json DELETE /users/42`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := g.loadRouter()
			if err != nil {
				return err
			}

			method := strings.ToUpper(args[0])
			results := make([]explain.MatchResponse, 0, len(args)-1)
			for _, path := range args[1:] {
				results = append(results, explain.Describe(r, method, path, r.Find(method, path)))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, res := range results {
				printMatch(out, res)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

func printMatch(w io.Writer, res explain.MatchResponse) {
	if !res.Found {
		errorMsg(w, "%s %s: no route", res.Method, res.Path)
		if len(res.Allowed) > 0 {
			info(w, "allowed: %s", strings.Join(res.Allowed, ", "))
		}
		return
	}

	success(w, "%s %s → %s", res.Method, res.Path, res.Handler)
	names := make([]string, 0, len(res.Params))
	for name := range res.Params {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		info(w, "%s = %s", name, res.Params[name])
	}
}
