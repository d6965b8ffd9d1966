package main

import (
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and route manifest",
		Long: `Validate wayfinder.json and compile the routes manifest.

The command fails if the configuration has invalid values, the
manifest is not valid JSON, a route template does not compile, or a
static redirect target is not navigable.

Examples:
  wayfinder check
  wayfinder check --manifest=routes.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(manifestPath)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the routes manifest (default from wayfinder.json)")

	return cmd
}

func runCheck(manifestPath string) error {
	cfg, m, err := loadProject(manifestPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	success("Configuration valid")

	if _, err := buildTree(m); err != nil {
		return err
	}
	success("%d routes compile", m.Len())

	return nil
}
