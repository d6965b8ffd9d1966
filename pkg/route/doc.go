// Package route defines the declarative navigation tree and its
// matcher.
//
// Applications declare a tree of routes, each carrying a path template,
// an optional builder, an optional redirect rule, and child routes.
// The tree is compiled and validated once by NewTree and is read-only
// afterwards.
//
// # Templates
//
// A template is made of literal segments, :name parameters, and an
// optional trailing *name catch-all:
//
//	/                      root
//	/login                 literal
//	/family/:fid           one parameter
//	person/:pid            child template (relative to its parent)
//	/files/*rest           catch-all, binds the remaining path
//
// Parameters match exactly one non-empty segment; catch-alls require at
// least one segment and bind everything left, slashes included.
//
// # Matching
//
// Tree.Match walks the declared tree depth-first. At every level the
// children are tried in declaration order and the first route whose
// template consumes the next piece of the path wins; this tie-break is
// a stable, documented contract. The result is the ordered chain of
// routes from the root to the terminal destination, each element paired
// with the parameters its own template bound.
//
// # Usage
//
//	tree, err := route.NewTree(
//	    &route.Route{
//	        Path:     "/",
//	        Redirect: func(route.State) route.Outcome { return route.RedirectTo("/family/1") },
//	    },
//	    &route.Route{
//	        Path:  "/family/:fid",
//	        Name:  "family",
//	        Build: familyScreen,
//	        Routes: []*route.Route{
//	            {Path: "person/:pid", Name: "person", Build: personScreen},
//	        },
//	    },
//	)
//
//	stack, ok := tree.Match("/family/1/person/2")
//	// stack.Params() == map[fid:1 pid:2]
//
//	path, err := tree.PathFor("person", map[string]string{"fid": "1", "pid": "2"})
//	// path == "/family/1/person/2"
package route
