package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wayfinder-dev/wayfinder/internal/errors"
	"github.com/wayfinder-dev/wayfinder/pkg/live"
	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

func resolveCmd() *cobra.Command {
	var (
		manifestPath string
		limit        int
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <location>",
		Short: "Run one resolution pass for a location",
		Long: `Resolve a location against the route tree and print where it lands.

The pass follows redirect rules until the location is stable, then
prints the final location, the matched route chain, and the path
parameters. Failed passes print the redirect trace.

Examples:
  wayfinder resolve /family/1
  wayfinder resolve "/family/1?tab=people"
  wayfinder resolve /old --json
  wayfinder resolve / --limit=10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], manifestPath, limit, asJSON)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the routes manifest (default from wayfinder.json)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Redirect limit for the pass (default from wayfinder.json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resolution as JSON")

	return cmd
}

func runResolve(cmd *cobra.Command, raw, manifestPath string, limit int, asJSON bool) error {
	loc, err := location.Parse(raw)
	if err != nil {
		return errors.New("E142").WithDetail(err.Error()).Wrap(err)
	}

	cfg, m, err := loadProject(manifestPath)
	if err != nil {
		return err
	}
	tree, err := buildTree(m)
	if err != nil {
		return err
	}

	if limit <= 0 {
		limit = cfg.Resolve.RedirectLimit
	}

	res, err := resolve.New(tree, resolve.WithLimit(limit)).Resolve(cmd.Context(), loc)
	if err != nil {
		return errors.FromResolve(err)
	}

	if asJSON {
		data, err := live.NewResolutionMessage(res).Encode()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	if res.Redirects == 1 {
		success("%s → %s  (1 redirect)", loc.Full(), res.Location.Full())
	} else if res.Redirects > 1 {
		success("%s → %s  (%d redirects)", loc.Full(), res.Location.Full(), res.Redirects)
	} else {
		success("%s", res.Location.Full())
	}

	fmt.Println()
	info("Routes:")
	for _, match := range res.Stack {
		line := "  " + match.Route.FullPath()
		if match.Route.Name != "" {
			line += "  (" + match.Route.Name + ")"
		}
		info(line)
	}

	params := res.Stack.Params()
	if len(params) > 0 {
		fmt.Println()
		info("Params:")
		for name, value := range params {
			info("  " + name + " = " + value)
		}
	}

	return nil
}
