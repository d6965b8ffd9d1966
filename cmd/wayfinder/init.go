package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wayfinder-dev/wayfinder/internal/config"
	"github.com/wayfinder-dev/wayfinder/internal/errors"
	"github.com/wayfinder-dev/wayfinder/pkg/manifest"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a project configuration and starter manifest",
		Long: `Create wayfinder.json and a starter routes manifest in the given
directory (default: the current directory).

Examples:
  wayfinder init
  wayfinder init my-app
  wayfinder init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")

	return cmd
}

// starterManifest is the route tree a fresh project begins with.
func starterManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Routes: []manifest.Entry{
			{
				Path: "/",
				Routes: []manifest.Entry{
					{Path: "login", Name: "login"},
					{Path: "family/:fid", Name: "family"},
				},
			},
		},
	}
}

func runInit(dir string, force bool) error {
	printBanner()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return err
	}

	if config.Exists(absDir) && !force {
		return errors.New("E140").
			WithDetail("Found " + filepath.Join(absDir, config.ConfigFileName)).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Name = filepath.Base(absDir)
	if err := cfg.SaveTo(filepath.Join(absDir, config.ConfigFileName)); err != nil {
		return err
	}
	success("Wrote %s", config.ConfigFileName)

	manifestPath := cfg.ManifestPath()
	if _, err := os.Stat(manifestPath); err == nil && !force {
		warn("Keeping existing %s", filepath.Base(manifestPath))
	} else {
		if err := starterManifest().Save(manifestPath); err != nil {
			return err
		}
		success("Wrote %s", filepath.Base(manifestPath))
	}

	info("")
	info("Next steps:")
	info("  wayfinder routes           inspect the route tree")
	info("  wayfinder resolve /login   try a resolution pass")
	info("  wayfinder serve            start the live server")

	return nil
}
