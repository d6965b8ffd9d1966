package navigator

import (
	"context"

	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

// Middleware observes or wraps each resolution pass. Handle must call
// next exactly once and runs on the navigator goroutine, so it has to
// stay non-blocking.
type Middleware interface {
	Handle(p *Pass, next func() error) error
}

// MiddlewareFunc adapts a plain function to the Middleware interface.
type MiddlewareFunc func(p *Pass, next func() error) error

// Handle calls f.
func (f MiddlewareFunc) Handle(p *Pass, next func() error) error { return f(p, next) }

// Pass carries one resolution pass through the middleware chain. The
// resolution and error fields are populated once next returns.
type Pass struct {
	ctx       context.Context
	requested location.Location
	res       *resolve.Resolution
	err       error
}

// NewPass builds a detached pass for exercising middleware outside a
// Navigator. The next function handed to Handle decides the outcome;
// SetResult records what a real pass would have produced.
func NewPass(ctx context.Context, requested location.Location) *Pass {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Pass{ctx: ctx, requested: requested}
}

// SetResult records the pass outcome. The navigator calls this from the
// innermost handler; detached passes call it from their next function.
func (p *Pass) SetResult(res *resolve.Resolution, err error) {
	p.res = res
	p.err = err
}

// Context returns the pass context. The innermost handler resolves with
// this context, so middleware that swaps it (tracing, deadlines) wraps
// the actual resolution.
func (p *Pass) Context() context.Context { return p.ctx }

// SetContext replaces the pass context for the rest of the chain.
func (p *Pass) SetContext(ctx context.Context) { p.ctx = ctx }

// Requested returns the location this pass was asked to resolve.
func (p *Pass) Requested() location.Location { return p.requested }

// Resolution returns the pass outcome, nil until next has returned or
// when the pass failed.
func (p *Pass) Resolution() *resolve.Resolution { return p.res }

// Err returns the pass failure, nil until next has returned.
func (p *Pass) Err() error { return p.err }

// runChain threads p through mws and finally terminal.
func runChain(mws []Middleware, p *Pass, terminal func() error) error {
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func() error { return mw.Handle(p, next) }
	}
	return h()
}
