package navigator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/refresh"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// ErrClosed is returned when a navigation request reaches a closed
// navigator.
var ErrClosed = errors.New("navigator: closed")

// Navigator drives resolution for one client. All passes run on a
// single goroutine: requests and refreshes only record what should be
// resolved next and wake that goroutine. Bursts coalesce into one
// follow-up pass, and when several requests arrive while a pass is in
// flight only the newest one's outcome is published.
type Navigator struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
	onResult func(*resolve.Resolution, error)
	mws      []Middleware
	sources  []refresh.Source

	resolverOpts []resolve.Option

	mu          sync.Mutex
	requested   location.Location
	haveRequest bool
	gen         uint64
	current     *resolve.Resolution
	cancels     []func()

	wakeCh  chan struct{}
	done    chan struct{}
	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithRedirect installs the global redirect rule, re-evaluated at the
// start of every resolution step.
func WithRedirect(fn route.RedirectFunc) Option {
	return func(n *Navigator) {
		n.resolverOpts = append(n.resolverOpts, resolve.WithRedirect(fn))
	}
}

// WithRedirectLimit caps how many redirects one pass may take.
// Non-positive values fall back to resolve.DefaultRedirectLimit.
func WithRedirectLimit(limit int) Option {
	return func(n *Navigator) {
		n.resolverOpts = append(n.resolverOpts, resolve.WithLimit(limit))
	}
}

// WithLogger sets the logger. slog.Default() is used when nil.
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithSource subscribes the navigator to an external refresh source for
// its lifetime. May be given several times.
func WithSource(src refresh.Source) Option {
	return func(n *Navigator) {
		if src != nil {
			n.sources = append(n.sources, src)
		}
	}
}

// WithMiddleware appends pass middleware, outermost first.
func WithMiddleware(mws ...Middleware) Option {
	return func(n *Navigator) { n.mws = append(n.mws, mws...) }
}

// OnResult sets the callback that receives each published pass outcome.
// It runs on the navigator goroutine; superseded passes are never
// delivered.
func OnResult(fn func(*resolve.Resolution, error)) Option {
	return func(n *Navigator) { n.onResult = fn }
}

// New builds a Navigator over tree.
func New(tree *route.Tree, opts ...Option) *Navigator {
	n := &Navigator{
		logger: slog.Default(),
		wakeCh: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.resolver = resolve.New(tree, n.resolverOpts...)
	return n
}

// Start launches the run loop and subscribes to the refresh sources.
// Calling Start more than once is a no-op.
func (n *Navigator) Start(ctx context.Context) {
	if !n.started.CompareAndSwap(false, true) {
		return
	}
	n.mu.Lock()
	for _, src := range n.sources {
		n.cancels = append(n.cancels, src.Subscribe(n.Refresh))
	}
	n.mu.Unlock()

	n.wg.Add(1)
	go n.run(ctx)
}

// Close cancels the refresh subscriptions and stops the run loop,
// waiting for an in-flight pass to finish. Close is idempotent.
func (n *Navigator) Close() {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}
	n.mu.Lock()
	cancels := n.cancels
	n.cancels = nil
	n.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}

	close(n.done)
	n.wg.Wait()
}

// Navigate requests resolution of raw. The call returns once the
// request is recorded; the outcome goes to the OnResult callback. A
// request made while a pass is in flight supersedes it.
func (n *Navigator) Navigate(raw string) error {
	loc, err := location.Parse(raw)
	if err != nil {
		return err
	}
	if n.closed.Load() {
		return ErrClosed
	}

	n.mu.Lock()
	n.requested = loc
	n.haveRequest = true
	n.gen++
	n.mu.Unlock()

	n.schedule()
	return nil
}

// Refresh schedules re-resolution of the last requested location, for
// when state consulted by redirect rules has changed. Refreshes
// coalesce: a burst arriving during a pass causes exactly one follow-up
// pass, and an in-flight pass's outcome is dropped in favor of the
// re-run. Before any Navigate call there is nothing to re-resolve and
// Refresh does nothing.
func (n *Navigator) Refresh() {
	if n.closed.Load() {
		return
	}
	n.mu.Lock()
	have := n.haveRequest
	if have {
		n.gen++
	}
	n.mu.Unlock()
	if have {
		n.schedule()
	}
}

// Current returns the most recently published resolution, nil before
// the first success.
func (n *Navigator) Current() *resolve.Resolution {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Location returns the final location of the last published resolution.
// ok is false before the first success.
func (n *Navigator) Location() (loc location.Location, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return location.Location{}, false
	}
	return n.current.Location, true
}

// schedule wakes the run loop. The wake channel has capacity one, so
// any number of pending wake-ups collapse into a single pass.
func (n *Navigator) schedule() {
	select {
	case n.wakeCh <- struct{}{}:
	default:
	}
}

func (n *Navigator) run(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-n.wakeCh:
			n.resolveOnce(ctx)
		case <-n.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// resolveOnce runs one pass against the latest recorded request and
// publishes the outcome unless a newer request arrived meanwhile.
func (n *Navigator) resolveOnce(ctx context.Context) {
	n.mu.Lock()
	if !n.haveRequest {
		n.mu.Unlock()
		return
	}
	loc := n.requested
	gen := n.gen
	n.mu.Unlock()

	pass := &Pass{ctx: ctx, requested: loc}
	start := time.Now()
	err := runChain(n.mws, pass, func() error {
		res, rerr := n.resolver.Resolve(pass.Context(), loc)
		pass.res = res
		pass.err = rerr
		return rerr
	})
	pass.err = err
	elapsed := time.Since(start)

	n.mu.Lock()
	stale := gen != n.gen
	if !stale && err == nil {
		n.current = pass.res
	}
	n.mu.Unlock()

	if stale {
		n.logger.Debug("pass superseded", "requested", loc.Full())
		return
	}

	if err != nil {
		n.logger.Warn("resolution failed",
			"requested", loc.Full(),
			"kind", resolve.Kind(err),
			"error", err,
			"duration", elapsed)
	} else {
		n.logger.Debug("resolved",
			"requested", loc.Full(),
			"final", pass.res.Location.Full(),
			"redirects", pass.res.Redirects,
			"duration", elapsed)
	}

	if n.onResult != nil {
		n.onResult(pass.res, err)
	}
}
