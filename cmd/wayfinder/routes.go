package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wayfinder-dev/wayfinder/pkg/manifest"
)

func routesCmd() *cobra.Command {
	var (
		manifestPath string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route tree",
		Long: `Print the route tree from the project manifest.

Each route shows its template, its name if it has one, and the
target of its static redirect if it is a redirect route.

Examples:
  wayfinder routes
  wayfinder routes --manifest=routes.json
  wayfinder routes --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(manifestPath, asJSON)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the routes manifest (default from wayfinder.json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the manifest as JSON")

	return cmd
}

func runRoutes(manifestPath string, asJSON bool) error {
	_, m, err := loadProject(manifestPath)
	if err != nil {
		return err
	}

	// Compile to surface bad templates even when only listing.
	if _, err := buildTree(m); err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	fmt.Println()
	printEntries(m.Routes, 0)
	fmt.Println()
	info(fmt.Sprintf("%d routes", m.Len()))
	return nil
}

// printEntries renders manifest entries as an indented tree.
func printEntries(entries []manifest.Entry, depth int) {
	for _, e := range entries {
		line := strings.Repeat("  ", depth+1) + e.Path
		if e.Name != "" {
			line += "  \033[36m(" + e.Name + ")\033[0m"
		}
		if e.RedirectTo != "" {
			line += "  \033[33m→ " + e.RedirectTo + "\033[0m"
		}
		fmt.Println(line)
		printEntries(e.Routes, depth+1)
	}
}
