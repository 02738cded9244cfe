package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/explain"
)

func routesCmd(g *globals) *cobra.Command {
	var (
		method string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Long: `List every registered route in canonical form, ordered by pattern and
then method.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, r, err := g.loadRouter()
			if err != nil {
				return err
			}
			table := explain.Table(r, method)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tPATTERN")
			for _, route := range table.Routes {
				fmt.Fprintf(tw, "%s\t%s\n", route.Method, route.Pattern)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			info(out, "%d routes from %s (backend %s, cache %d)",
				table.Count, m.Path(), table.Backend, table.Cache.Capacity)
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "only list routes for this method")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the table as JSON")

	return cmd
}
