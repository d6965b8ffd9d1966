package route

import (
	"reflect"
	"testing"
)

func TestMatchRoot(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/", Name: "home", Build: buildNop})

	stack, ok := tree.Match("/")
	if !ok {
		t.Fatal("expected match for /")
	}
	if len(stack) != 1 {
		t.Fatalf("len(stack) = %d, want 1", len(stack))
	}
	if stack.Terminal().Route.Name != "home" {
		t.Errorf("terminal = %q, want %q", stack.Terminal().Route.Name, "home")
	}
}

func TestMatchNested(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/family/:fid", Name: "family", Build: buildNop, Routes: []*Route{
		{Path: "person/:pid", Name: "person", Build: buildNop},
	}})

	stack, ok := tree.Match("/family/1/person/2")
	if !ok {
		t.Fatal("expected match for /family/1/person/2")
	}
	if got := stack.Names(); !reflect.DeepEqual(got, []string{"family", "person"}) {
		t.Errorf("stack names = %v, want [family person]", got)
	}
	if got := stack.Params(); !reflect.DeepEqual(got, map[string]string{"fid": "1", "pid": "2"}) {
		t.Errorf("stack params = %v, want map[fid:1 pid:2]", got)
	}
	// Each element carries only its own bindings.
	if got := stack[0].Params; !reflect.DeepEqual(got, map[string]string{"fid": "1"}) {
		t.Errorf("root element params = %v, want map[fid:1]", got)
	}
}

func TestMatchUnderRootRoute(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/", Name: "home", Build: buildNop, Routes: []*Route{
		{Path: "settings", Name: "settings", Build: buildNop},
	}})

	stack, ok := tree.Match("/settings")
	if !ok {
		t.Fatal("expected match for /settings")
	}
	if got := stack.Names(); !reflect.DeepEqual(got, []string{"home", "settings"}) {
		t.Errorf("stack names = %v, want [home settings]", got)
	}
}

func TestMatchDeclarationOrder(t *testing.T) {
	// The first structurally compatible route in declaration order wins,
	// even when a later route is more specific.
	paramFirst := MustNewTree(
		&Route{Path: "/family/:fid", Name: "family", Build: buildNop},
		&Route{Path: "/family/new", Name: "new", Build: buildNop},
	)
	stack, ok := paramFirst.Match("/family/new")
	if !ok {
		t.Fatal("expected match for /family/new")
	}
	if stack.Terminal().Route.Name != "family" {
		t.Errorf("terminal = %q, want %q (declaration order)", stack.Terminal().Route.Name, "family")
	}
	if fid := stack.Params()["fid"]; fid != "new" {
		t.Errorf("params[fid] = %q, want %q", fid, "new")
	}

	literalFirst := MustNewTree(
		&Route{Path: "/family/new", Name: "new", Build: buildNop},
		&Route{Path: "/family/:fid", Name: "family", Build: buildNop},
	)
	stack, ok = literalFirst.Match("/family/new")
	if !ok {
		t.Fatal("expected match for /family/new")
	}
	if stack.Terminal().Route.Name != "new" {
		t.Errorf("terminal = %q, want %q (declaration order)", stack.Terminal().Route.Name, "new")
	}
}

func TestMatchBacktracking(t *testing.T) {
	// The first branch consumes /shop/sale but cannot finish; matching
	// falls back to the next top-level route and the abandoned branch's
	// bindings are discarded.
	tree := MustNewTree(
		&Route{Path: "/shop/:category", Routes: []*Route{
			{Path: "items", Name: "items", Build: buildNop},
		}},
		&Route{Path: "/shop/sale/today", Name: "sale", Build: buildNop},
	)

	stack, ok := tree.Match("/shop/sale/today")
	if !ok {
		t.Fatal("expected match for /shop/sale/today")
	}
	if stack.Terminal().Route.Name != "sale" {
		t.Errorf("terminal = %q, want %q", stack.Terminal().Route.Name, "sale")
	}
	if params := stack.Params(); len(params) != 0 {
		t.Errorf("params = %v, want none after backtracking", params)
	}

	stack, ok = tree.Match("/shop/books/items")
	if !ok {
		t.Fatal("expected match for /shop/books/items")
	}
	if got := stack.Params()["category"]; got != "books" {
		t.Errorf("params[category] = %q, want %q", got, "books")
	}
}

func TestMatchCatchAll(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/files/*rest", Name: "files", Build: buildNop})

	stack, ok := tree.Match("/files/docs/2024/report.pdf")
	if !ok {
		t.Fatal("expected match for /files/docs/2024/report.pdf")
	}
	if got := stack.Params()["rest"]; got != "docs/2024/report.pdf" {
		t.Errorf("params[rest] = %q, want %q", got, "docs/2024/report.pdf")
	}

	// A catch-all needs at least one segment.
	if _, ok := tree.Match("/files"); ok {
		t.Error("catch-all must not match with no remaining segments")
	}
}

func TestMatchGroupingRouteIsNotDestination(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/admin", Routes: []*Route{
		{Path: "users", Name: "users", Build: buildNop},
	}})

	if _, ok := tree.Match("/admin"); ok {
		t.Error("route with only children must not terminate a match")
	}

	stack, ok := tree.Match("/admin/users")
	if !ok {
		t.Fatal("expected match for /admin/users")
	}
	if len(stack) != 2 {
		t.Errorf("len(stack) = %d, want 2", len(stack))
	}
}

func TestMatchRedirectOnlyRouteIsDestination(t *testing.T) {
	tree := MustNewTree(&Route{
		Path:     "/old",
		Name:     "old",
		Redirect: func(State) Outcome { return RedirectTo("/new") },
	})

	stack, ok := tree.Match("/old")
	if !ok {
		t.Fatal("expected redirect-only route to match")
	}
	if stack.Terminal().Route.Name != "old" {
		t.Errorf("terminal = %q, want %q", stack.Terminal().Route.Name, "old")
	}
}

func TestMatchNoMatch(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/users", Build: buildNop})

	if _, ok := tree.Match("/projects"); ok {
		t.Error("should not match /projects")
	}
	if _, ok := tree.Match("/users/123"); ok {
		t.Error("should not match a longer path than the template")
	}
}

func TestMatchDecodesParams(t *testing.T) {
	tree := MustNewTree(&Route{Path: "/family/:fid", Build: buildNop})

	stack, ok := tree.Match("/family/a%20b")
	if !ok {
		t.Fatalf("expected match for /family/a%%20b")
	}
	if got := stack.Params()["fid"]; got != "a b" {
		t.Errorf("params[fid] = %q, want %q", got, "a b")
	}

	// An encoded slash inside a single-segment parameter is a smuggling
	// attempt, not a match.
	if _, ok := tree.Match("/family/a%2Fb"); ok {
		t.Error("encoded slash must not match a single-segment parameter")
	}
}

func TestStackTerminalEmpty(t *testing.T) {
	var s Stack
	if got := s.Terminal(); got.Route != nil {
		t.Errorf("Terminal() of empty stack = %+v, want zero", got)
	}
}

func BenchmarkTreeMatch(b *testing.B) {
	tree := MustNewTree(
		&Route{Path: "/", Build: buildNop, Routes: []*Route{
			{Path: "login", Build: buildNop},
			{Path: "settings", Build: buildNop},
			{Path: "family/:fid", Build: buildNop, Routes: []*Route{
				{Path: "person/:pid", Build: buildNop, Routes: []*Route{
					{Path: "details", Build: buildNop},
				}},
			}},
		}},
	)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, ok := tree.Match("/family/1/person/2/details"); !ok {
			b.Fatal("match failed")
		}
	}
}
