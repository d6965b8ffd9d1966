// Package manifest loads and saves declarative route manifests.
//
// A manifest is a JSON description of a route tree that tools can
// publish and servers can load without compiling routes in:
//
//	{
//	  "routes": [
//	    {"path": "/", "routes": [
//	      {"path": "family/:fid", "name": "family"},
//	      {"path": "old", "redirect_to": "/family/1"}
//	    ]}
//	  ]
//	}
//
// Build turns a manifest back into a route tree. Routes without a
// redirect_to get a placeholder builder unless the caller overlays a
// real one by template path:
//
//	m, _ := manifest.Load("wayfinder.routes.json")
//	tree, _ := m.Build(map[string]route.Builder{
//	    "/family/:fid": familyPage,
//	})
//
// Redirect rules are code and do not serialize: FromTree captures the
// shape of a tree for tooling, not its dynamic redirect behavior.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// Entry describes one route in a manifest.
type Entry struct {
	// Path is the route template: absolute for top-level entries,
	// relative for children.
	Path string `json:"path"`

	// Name optionally labels the route for reverse lookup.
	Name string `json:"name,omitempty"`

	// RedirectTo sends matches to a fixed location instead of
	// building a value.
	RedirectTo string `json:"redirect_to,omitempty"`

	// Routes lists the children.
	Routes []Entry `json:"routes,omitempty"`
}

// Manifest is a declarative description of a route tree.
type Manifest struct {
	Routes []Entry `json:"routes"`
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes manifest JSON. Unknown fields are rejected so typos
// surface as errors instead of silently dropped configuration.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	return &m, nil
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Len returns the number of routes in the manifest, children included.
func (m *Manifest) Len() int {
	n := 0
	var count func(entries []Entry)
	count = func(entries []Entry) {
		for _, e := range entries {
			n++
			count(e.Routes)
		}
	}
	count(m.Routes)
	return n
}

// Paths returns the full template path of every route, parents before
// children in declaration order.
func (m *Manifest) Paths() []string {
	var paths []string
	var walk func(entries []Entry, parent string)
	walk = func(entries []Entry, parent string) {
		for _, e := range entries {
			full := joinTemplate(parent, e.Path)
			paths = append(paths, full)
			walk(e.Routes, full)
		}
	}
	walk(m.Routes, "")
	return paths
}

// Build turns the manifest into a route tree. Entries with a
// redirect_to become static redirects; their targets are parsed here
// so bad targets fail at load time, not at resolution time. Every
// other entry gets the builder registered for its full template path
// in builders, or a placeholder builder when none is.
func (m *Manifest) Build(builders map[string]route.Builder) (*route.Tree, error) {
	routes := make([]*route.Route, 0, len(m.Routes))
	for _, e := range m.Routes {
		r, err := buildEntry(e, "", builders)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return route.NewTree(routes...)
}

func buildEntry(e Entry, parent string, builders map[string]route.Builder) (*route.Route, error) {
	if e.Path == "" {
		return nil, fmt.Errorf("manifest: route under %q has no path", parent)
	}
	full := joinTemplate(parent, e.Path)

	r := &route.Route{
		Path: e.Path,
		Name: e.Name,
	}

	switch {
	case e.RedirectTo != "":
		target, err := location.Parse(e.RedirectTo)
		if err != nil {
			return nil, fmt.Errorf("manifest: route %s: bad redirect target: %w", full, err)
		}
		raw := target.Full()
		r.Redirect = func(route.State) route.Outcome {
			return route.RedirectTo(raw)
		}

	case builders[full] != nil:
		r.Build = builders[full]

	default:
		r.Build = placeholderBuilder
	}

	for _, child := range e.Routes {
		cr, err := buildEntry(child, full, builders)
		if err != nil {
			return nil, err
		}
		r.Routes = append(r.Routes, cr)
	}

	return r, nil
}

// placeholderBuilder stands in for routes a manifest declares without
// an overlaid builder.
func placeholderBuilder(route.State) any { return nil }

// FromTree exports the shape of a route tree. Redirect rules and
// builders are code; the exported entries carry templates and names
// only.
func FromTree(tree *route.Tree) *Manifest {
	var convert func(r *route.Route) Entry
	convert = func(r *route.Route) Entry {
		e := Entry{
			Path: r.Path,
			Name: r.Name,
		}
		for _, child := range r.Routes {
			e.Routes = append(e.Routes, convert(child))
		}
		return e
	}

	m := &Manifest{}
	for _, r := range tree.Routes() {
		m.Routes = append(m.Routes, convert(r))
	}
	return m
}

func joinTemplate(parent, path string) string {
	if parent == "" {
		return path
	}
	if parent == "/" {
		return "/" + path
	}
	return parent + "/" + path
}
