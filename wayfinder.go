// Package wayfinder provides the public API for the Wayfinder
// navigation toolkit.
//
// This is the recommended import for most applications:
//
//	import "github.com/wayfinder-dev/wayfinder"
//
// Usage:
//
//	tree := wayfinder.MustNewTree(&wayfinder.Route{
//		Path:  "/",
//		Build: homePage,
//		Routes: []*wayfinder.Route{
//			{Path: "family/:fid", Name: "family", Build: familyPage},
//		},
//	})
//
//	app := wayfinder.New(tree, wayfinder.Config{})
//	http.ListenAndServe(":8420", app)
//
// The subpackages remain importable on their own: pkg/route for tree
// construction and matching, pkg/resolve for one-shot resolution,
// pkg/navigator for the session state machine, and pkg/live for the
// WebSocket service this package wraps.
package wayfinder

import (
	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// Core navigation types, re-exported so applications can build and
// resolve trees from a single import.
type (
	// Route declares one node of the navigation tree.
	Route = route.Route

	// Tree is an immutable, validated navigation tree.
	Tree = route.Tree

	// Builder produces the destination value for a stable match.
	Builder = route.Builder

	// RedirectFunc decides whether one resolution step redirects.
	RedirectFunc = route.RedirectFunc

	// State is the read-only context handed to a redirect rule.
	State = route.State

	// Outcome is a redirect rule's decision for one step.
	Outcome = route.Outcome

	// Match pairs a route with the parameters its template bound.
	Match = route.Match

	// Stack is a root-to-leaf chain of matches.
	Stack = route.Stack

	// Location is a canonical navigation target.
	Location = location.Location

	// Resolution is the settled outcome of a navigation.
	Resolution = resolve.Resolution
)

// NewTree validates and compiles the given top-level routes.
func NewTree(routes ...*Route) (*Tree, error) {
	return route.NewTree(routes...)
}

// MustNewTree is NewTree for statically known trees; it panics on error.
func MustNewTree(routes ...*Route) *Tree {
	return route.MustNewTree(routes...)
}

// RedirectTo sends navigation to a new location string.
func RedirectTo(target string) Outcome {
	return route.RedirectTo(target)
}

// NoRedirect keeps navigation at the current location.
func NoRedirect() Outcome {
	return route.NoRedirect()
}

// ParseLocation canonicalizes raw into a Location.
func ParseLocation(raw string) (Location, error) {
	return location.Parse(raw)
}

// Kind labels a resolution failure: "not_found", "redirect_limit",
// "redirect_loop", "rule", "canceled", or "internal". Empty for nil
// and foreign errors.
func Kind(err error) string {
	return resolve.Kind(err)
}

// Trace returns the redirect trace carried by a resolution failure,
// nil for errors without one.
func Trace(err error) []string {
	return resolve.Trace(err)
}
