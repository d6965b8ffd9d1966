package route

import "github.com/wayfinder-dev/wayfinder/pkg/location"

// State is the read-only context handed to a redirect rule for one
// resolution step: the location under consideration plus the path and
// query parameters extracted from it. States are built fresh per step
// and never survive a pass.
type State struct {
	loc    location.Location
	params map[string]string
	query  map[string]string
}

// NewState builds a State for loc. params holds the merged path
// parameters of the current match, root to leaf; it may be nil when
// nothing has matched yet.
func NewState(loc location.Location, params map[string]string) State {
	return State{loc: loc, params: params, query: loc.QueryValues()}
}

// Location returns the full location string, path plus query.
func (s State) Location() string { return s.loc.Full() }

// Sub returns the path-only view of the location, with no query.
func (s State) Sub() string { return s.loc.Path() }

// Param returns the path parameter bound to name by the current match.
func (s State) Param(name string) (string, bool) {
	v, ok := s.params[name]
	return v, ok
}

// Params returns the merged path parameters. The map is shared; treat
// it as read-only.
func (s State) Params() map[string]string { return s.params }

// Query returns the query parameter named name. The bool distinguishes
// an absent parameter from an empty value.
func (s State) Query(name string) (string, bool) {
	v, ok := s.query[name]
	return v, ok
}

// QueryParams returns the parsed query parameters. The map is shared;
// treat it as read-only.
func (s State) QueryParams() map[string]string { return s.query }

// Outcome is a redirect rule's decision for one resolution step:
// either stay put or go elsewhere. The zero Outcome means no redirect.
type Outcome struct {
	target   string
	redirect bool
}

// RedirectTo sends navigation to a new location string. The target is
// canonicalized by the resolver before it is followed.
func RedirectTo(target string) Outcome {
	return Outcome{target: target, redirect: true}
}

// NoRedirect keeps navigation at the current location.
func NoRedirect() Outcome { return Outcome{} }

// IsRedirect reports whether the rule chose a new location.
func (o Outcome) IsRedirect() bool { return o.redirect }

// Target returns the redirect target; empty unless IsRedirect.
func (o Outcome) Target() string { return o.target }
