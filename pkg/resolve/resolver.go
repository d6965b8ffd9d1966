package resolve

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// DefaultRedirectLimit is how many redirects one pass may take before
// it fails with ErrRedirectLimit.
const DefaultRedirectLimit = 5

// Resolver turns a requested location into a stable match stack by
// repeatedly applying the global redirect rule and the terminal route's
// redirect rule until neither asks to move. A Resolver is immutable and
// safe for concurrent use; each Resolve call is an independent pass.
type Resolver struct {
	tree   *route.Tree
	global route.RedirectFunc
	limit  int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRedirect installs the global redirect rule. It is re-evaluated at
// the start of every step of every pass and always wins over the
// terminal route's rule.
func WithRedirect(fn route.RedirectFunc) Option {
	return func(r *Resolver) { r.global = fn }
}

// WithLimit sets the redirect limit for one pass. Non-positive values
// fall back to DefaultRedirectLimit.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// New builds a Resolver over tree.
func New(tree *route.Tree, opts ...Option) *Resolver {
	r := &Resolver{tree: tree, limit: DefaultRedirectLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolution is the successful outcome of one pass.
type Resolution struct {
	// Location is the final, stable location.
	Location location.Location

	// Stack is the matched chain for Location, root to terminal.
	Stack route.Stack

	// Redirects is how many redirects the pass followed.
	Redirects int
}

// Resolve runs one resolution pass for loc and returns the stable
// resolution, or an *Error describing why the pass failed. The context
// is only consulted between steps; redirect rules themselves are
// expected to be non-blocking.
//
// Each step works through the same sequence: the global rule first,
// whose redirect wins the step outright; then matching; then the
// terminal route's rule, and only the terminal's. Every redirect target
// is canonicalized, recorded against the loop guard, and becomes the
// next step's location.
func (r *Resolver) Resolve(ctx context.Context, loc location.Location) (*Resolution, error) {
	guard := newLoopGuard(r.limit)
	current := loc

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// The global rule runs before matching, so it sees no path
		// parameters, only the location and its query.
		if r.global != nil {
			outcome, err := runRule(ruleGlobal, r.global, route.NewState(current, nil), guard)
			if err != nil {
				return nil, err
			}
			if outcome.IsRedirect() {
				next, err := r.follow(guard, current, outcome.Target(), ruleGlobal)
				if err != nil {
					return nil, err
				}
				current = next
				continue
			}
		}

		stack, ok := r.tree.Match(current.Path())
		if !ok {
			return nil, &Error{
				Kind:     ErrNotFound,
				Location: current.Full(),
				Trace:    guard.traceTo(current.Full()),
			}
		}

		terminal := stack.Terminal().Route
		if terminal.Redirect != nil {
			outcome, err := runRule(terminal.FullPath(), terminal.Redirect, route.NewState(current, stack.Params()), guard)
			if err != nil {
				return nil, err
			}
			if outcome.IsRedirect() {
				next, err := r.follow(guard, current, outcome.Target(), terminal.FullPath())
				if err != nil {
					return nil, err
				}
				current = next
				continue
			}
		}

		if terminal.Build == nil {
			return nil, &Error{
				Kind:     ErrMissingBuilder,
				Location: current.Full(),
				Trace:    guard.traceTo(current.Full()),
			}
		}

		return &Resolution{
			Location:  current,
			Stack:     stack,
			Redirects: guard.steps(),
		}, nil
	}
}

// ruleGlobal names the global rule in errors and traces.
const ruleGlobal = "global"

// follow canonicalizes a redirect target and records the step with the
// loop guard. A target that does not parse is the emitting rule's
// fault.
func (r *Resolver) follow(guard *loopGuard, current location.Location, target, rule string) (location.Location, error) {
	next, err := location.Parse(target)
	if err != nil {
		return location.Location{}, &Error{
			Kind:     ErrRule,
			Rule:     rule,
			Location: current.Full(),
			Trace:    guard.traceTo(current.Full()),
			Err:      fmt.Errorf("redirect target %q: %w", target, err),
		}
	}
	if err := guard.record(current, next); err != nil {
		return location.Location{}, err
	}
	return next, nil
}

// runRule invokes one redirect rule with panic recovery. A panicking
// rule fails the pass with ErrRule instead of taking the process down.
func runRule(name string, fn route.RedirectFunc, state route.State, guard *loopGuard) (outcome route.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &Error{
				Kind:     ErrRule,
				Rule:     name,
				Location: state.Location(),
				Trace:    guard.traceTo(state.Location()),
				Err:      fmt.Errorf("panic: %v", rec),
				Stack:    debug.Stack(),
			}
		}
	}()
	return fn(state), nil
}
