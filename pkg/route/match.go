package route

import (
	"strings"

	"github.com/wayfinder-dev/wayfinder/pkg/location"
)

// Match pairs a matched route with the parameters its own template
// bound. Ancestor bindings live in the preceding stack elements.
type Match struct {
	Route  *Route
	Params map[string]string
}

// Stack is the ordered chain of matches from the tree root to the
// terminal route for one location. Every element's route is the parent
// of the next; the last element is the navigation destination and the
// only one whose redirect rule may run.
type Stack []Match

// Terminal returns the deepest match. The zero Match is returned for an
// empty stack.
func (s Stack) Terminal() Match {
	if len(s) == 0 {
		return Match{}
	}
	return s[len(s)-1]
}

// Params merges every element's bindings root to leaf into a fresh map.
func (s Stack) Params() map[string]string {
	out := make(map[string]string)
	for _, m := range s {
		for name, value := range m.Params {
			out[name] = value
		}
	}
	return out
}

// Names returns the route names along the stack, "" for unnamed routes.
func (s Stack) Names() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Route.Name
	}
	return out
}

// Match finds the deepest route chain whose concatenated templates
// fully consume path, which must already be canonical and carry no
// query component. Routes are tried in declaration order at every
// level and the first chain that consumes the whole path wins; a
// branch that consumes a prefix but cannot finish is abandoned and its
// bindings discarded.
//
// A route counts as a destination only if it carries a builder or a
// redirect; routes that exist purely to group children cannot terminate
// a match.
func (t *Tree) Match(path string) (Stack, bool) {
	segments := splitPath(path)
	for _, r := range t.routes {
		if stack, ok := matchRoute(r, segments); ok {
			return stack, true
		}
	}
	return nil, false
}

// matchRoute tries to consume segs with r's own template and then its
// descendants, depth-first in declaration order.
func matchRoute(r *Route, segs []string) (Stack, bool) {
	params, rest, ok := consumeTemplate(r.segments, segs)
	if !ok {
		return nil, false
	}

	if len(rest) == 0 {
		if r.Build != nil || r.Redirect != nil {
			return Stack{{Route: r, Params: params}}, true
		}
		return nil, false
	}

	for _, child := range r.Routes {
		if sub, ok := matchRoute(child, rest); ok {
			return append(Stack{{Route: r, Params: params}}, sub...), true
		}
	}
	return nil, false
}

// consumeTemplate matches tpl against the front of segs, binding
// parameters. It returns the bindings (nil when the template has none),
// the unconsumed remainder, and whether the template matched.
func consumeTemplate(tpl []segment, segs []string) (map[string]string, []string, bool) {
	var params map[string]string
	for i, s := range tpl {
		switch s.kind {
		case segLiteral:
			if i >= len(segs) || segs[i] != s.value {
				return nil, nil, false
			}
		case segParam:
			if i >= len(segs) {
				return nil, nil, false
			}
			decoded, err := location.DecodeSegment(segs[i], false)
			if err != nil {
				return nil, nil, false
			}
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[s.value] = decoded
		case segSplat:
			// The catch-all needs at least one segment and swallows
			// everything left.
			if i >= len(segs) {
				return nil, nil, false
			}
			decoded, err := location.DecodeSegment(strings.Join(segs[i:], "/"), true)
			if err != nil {
				return nil, nil, false
			}
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[s.value] = decoded
			return params, nil, true
		}
	}
	return params, segs[len(tpl):], true
}

// splitPath splits a canonical path into segments, nil for root.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
