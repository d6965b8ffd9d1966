package route

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Builder produces the application's destination value for a stable
// match. Resolution never invokes builders; it only requires their
// presence on the terminal route of a finished pass.
type Builder func(State) any

// RedirectFunc decides whether navigation should leave the current
// location. Rules must be pure functions of their State: any external
// data a rule needs has to be captured at construction time, so one
// resolution pass stays deterministic.
type RedirectFunc func(State) Outcome

// Route declares one node of the navigation tree. Routes are immutable
// once handed to NewTree; mutating a registered route is undefined.
type Route struct {
	// Path is the route's template relative to its parent: literal
	// segments, :name parameters, and an optional trailing *name
	// catch-all. Top-level paths start with "/"; child paths must not.
	Path string

	// Name optionally registers the route for reverse lookup with
	// Tree.PathFor. Names are unique across a tree, case-sensitive.
	Name string

	// Redirect is consulted only when this route is the terminal
	// element of a match. Redirects on ancestors never run.
	Redirect RedirectFunc

	// Build produces the destination for a stable match. A route with
	// Redirect but no Build is a pure forwarding node.
	Build Builder

	// Routes are the child routes, tried in declaration order.
	Routes []*Route

	segments []segment
	parent   *Route
}

// FullPath returns the route's template joined with its ancestors',
// e.g. "/family/:fid/person/:pid".
func (r *Route) FullPath() string {
	var parts []string
	for _, anc := range r.chain() {
		for _, s := range anc.segments {
			parts = append(parts, s.String())
		}
	}
	return "/" + strings.Join(parts, "/")
}

// chain returns the routes from the tree root down to r.
func (r *Route) chain() []*Route {
	var out []*Route
	for cur := r; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Tree is an immutable, validated navigation tree. Build one with
// NewTree; matching and reverse lookup are safe for concurrent use.
type Tree struct {
	routes []*Route
	byName map[string]*Route
}

// NewTree validates and compiles the given top-level routes. All
// validation problems are reported together.
func NewTree(routes ...*Route) (*Tree, error) {
	if len(routes) == 0 {
		return nil, errors.New("route: tree needs at least one route")
	}
	t := &Tree{routes: routes, byName: make(map[string]*Route)}

	var errs []error
	for _, r := range routes {
		t.compile(r, nil, nil, &errs)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// MustNewTree is NewTree for statically known trees; it panics on error.
func MustNewTree(routes ...*Route) *Tree {
	t, err := NewTree(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the top-level routes in declaration order.
func (t *Tree) Routes() []*Route { return t.routes }

// Walk visits every route depth-first in declaration order. depth is 0
// for top-level routes.
func (t *Tree) Walk(fn func(r *Route, depth int)) {
	var visit func(r *Route, depth int)
	visit = func(r *Route, depth int) {
		fn(r, depth)
		for _, child := range r.Routes {
			visit(child, depth+1)
		}
	}
	for _, r := range t.routes {
		visit(r, 0)
	}
}

// PathFor builds a concrete path for the named route, substituting the
// given parameters into its full template. Parameter values are
// percent-escaped; catch-all values keep their slashes. Unused entries
// in params are ignored.
func (t *Tree) PathFor(name string, params map[string]string) (string, error) {
	r, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("route: no route named %q", name)
	}

	var parts []string
	for _, anc := range r.chain() {
		for _, s := range anc.segments {
			switch s.kind {
			case segLiteral:
				parts = append(parts, s.value)
			case segParam:
				v, ok := params[s.value]
				if !ok {
					return "", fmt.Errorf("route: missing parameter %q for route %q", s.value, name)
				}
				parts = append(parts, url.PathEscape(v))
			case segSplat:
				v, ok := params[s.value]
				if !ok {
					return "", fmt.Errorf("route: missing parameter %q for route %q", s.value, name)
				}
				for _, piece := range strings.Split(v, "/") {
					parts = append(parts, url.PathEscape(piece))
				}
			}
		}
	}
	return "/" + strings.Join(parts, "/"), nil
}

// compile validates r, compiles its template, and recurses into its
// children. inherited carries the parameter names bound by ancestors.
func (t *Tree) compile(r *Route, parent *Route, inherited []string, errs *[]error) {
	r.parent = parent

	segs, err := compileTemplate(r.Path, parent == nil)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("route %q: %w", r.Path, err))
		return
	}
	r.segments = segs

	if r.Build == nil && r.Redirect == nil && len(r.Routes) == 0 {
		*errs = append(*errs, fmt.Errorf("route %q: needs a builder, a redirect, or child routes", r.FullPath()))
	}

	params := append([]string(nil), inherited...)
	for _, s := range segs {
		if s.kind == segLiteral {
			continue
		}
		for _, seen := range params {
			if seen == s.value {
				*errs = append(*errs, fmt.Errorf("route %q: parameter %q already bound by an ancestor", r.FullPath(), s.value))
			}
		}
		params = append(params, s.value)
	}

	if r.Name != "" {
		if prev, ok := t.byName[r.Name]; ok {
			*errs = append(*errs, fmt.Errorf("route %q: name %q already used by %q", r.FullPath(), r.Name, prev.FullPath()))
		} else {
			t.byName[r.Name] = r
		}
	}

	if len(r.Routes) > 0 && len(segs) > 0 && segs[len(segs)-1].kind == segSplat {
		*errs = append(*errs, fmt.Errorf("route %q: catch-all routes cannot have children", r.FullPath()))
	}

	for _, child := range r.Routes {
		t.compile(child, r, params, errs)
	}
}

// segKind classifies one compiled template segment.
type segKind int

const (
	segLiteral segKind = iota
	segParam
	segSplat
)

// segment is one compiled element of a route template.
type segment struct {
	kind  segKind
	value string // literal text, or the parameter name
}

func (s segment) String() string {
	switch s.kind {
	case segParam:
		return ":" + s.value
	case segSplat:
		return "*" + s.value
	default:
		return s.value
	}
}

// compileTemplate parses a route path template into segments. Top-level
// templates must start with "/"; child templates must not.
func compileTemplate(path string, topLevel bool) ([]segment, error) {
	if path == "" {
		return nil, errors.New("empty path template")
	}
	if topLevel {
		if !strings.HasPrefix(path, "/") {
			return nil, errors.New(`top-level path must start with "/"`)
		}
		path = strings.TrimPrefix(path, "/")
	} else {
		if strings.HasPrefix(path, "/") {
			return nil, errors.New(`child path must not start with "/"`)
		}
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		if topLevel {
			return nil, nil // root template "/"
		}
		return nil, errors.New("empty path template")
	}

	raw := strings.Split(path, "/")
	segs := make([]segment, 0, len(raw))
	for i, part := range raw {
		switch {
		case part == "":
			return nil, errors.New("empty segment in path template")
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if !validParamName(name) {
				return nil, fmt.Errorf("invalid parameter name %q", part)
			}
			segs = append(segs, segment{kind: segParam, value: name})
		case strings.HasPrefix(part, "*"):
			name := part[1:]
			if !validParamName(name) {
				return nil, fmt.Errorf("invalid catch-all name %q", part)
			}
			if i != len(raw)-1 {
				return nil, errors.New("catch-all must be the last segment")
			}
			segs = append(segs, segment{kind: segSplat, value: name})
		default:
			if strings.ContainsAny(part, ":*") {
				return nil, fmt.Errorf("misplaced ':' or '*' in segment %q", part)
			}
			segs = append(segs, segment{kind: segLiteral, value: part})
		}
	}
	return segs, nil
}

// validParamName accepts Go-identifier-shaped parameter names.
func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
