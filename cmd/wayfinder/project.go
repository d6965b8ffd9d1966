package main

import (
	"os"

	"github.com/wayfinder-dev/wayfinder/internal/config"
	"github.com/wayfinder-dev/wayfinder/internal/errors"
	"github.com/wayfinder-dev/wayfinder/pkg/manifest"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// loadProject loads the configuration and routes manifest for a
// command. An explicit manifest path skips the config lookup and runs
// against default settings, so single-file manifests can be inspected
// outside a project.
func loadProject(manifestPath string) (*config.Config, *manifest.Manifest, error) {
	cfg := config.New()

	if manifestPath == "" {
		loaded, err := config.LoadFromWorkingDir()
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		manifestPath = cfg.ManifestPath()
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.New("E023").
				WithDetail("Looked for " + manifestPath).
				WithSuggestion("Run 'wayfinder init' to create a starter manifest")
		}
		return nil, nil, errors.FromError(err, "E020").WithDetail(err.Error())
	}

	return cfg, m, nil
}

// buildTree compiles a manifest into a route tree, converting build
// failures into coded errors.
func buildTree(m *manifest.Manifest) (*route.Tree, error) {
	tree, err := m.Build(nil)
	if err != nil {
		return nil, errors.New("E020").WithDetail(err.Error()).Wrap(err)
	}
	return tree, nil
}
