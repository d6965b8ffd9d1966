package wayfinder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wayfinder-dev/wayfinder/pkg/live"
	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

// Config configures an App. The zero value is usable: default live
// transport settings, the default redirect limit, no global rule.
type Config struct {
	// Live tunes the WebSocket transport. Nil means live.DefaultConfig.
	Live *live.Config

	// Redirect is the global redirect rule, consulted before route
	// rules on every resolution step.
	Redirect RedirectFunc

	// RedirectLimit caps redirect hops per resolution. Zero keeps the
	// default of 5.
	RedirectLimit int

	// Middleware wraps every session's resolution passes, first
	// entry outermost.
	Middleware []navigator.Middleware

	// Metrics mounts the Prometheus handler at /metrics.
	Metrics bool

	// Logger receives session logs. Nil means slog.Default.
	Logger *slog.Logger
}

// App bundles a route tree and the live navigation service into a
// single http.Handler.
//
// Create an App with wayfinder.New():
//
//	app := wayfinder.New(tree, wayfinder.Config{
//		Redirect:      loginGate,
//		RedirectLimit: 5,
//	})
//	http.ListenAndServe(":8420", app)
//
// The handler exposes /ws (WebSocket sessions), /healthz, and, when
// Config.Metrics is set, /metrics.
type App struct {
	tree *route.Tree
	live *live.Server
	mux  chi.Router
}

// New creates an App resolving navigations against tree.
func New(tree *route.Tree, cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var navOpts []navigator.Option
	if cfg.Redirect != nil {
		navOpts = append(navOpts, navigator.WithRedirect(cfg.Redirect))
	}
	if cfg.RedirectLimit > 0 {
		navOpts = append(navOpts, navigator.WithRedirectLimit(cfg.RedirectLimit))
	}
	if len(cfg.Middleware) > 0 {
		navOpts = append(navOpts, navigator.WithMiddleware(cfg.Middleware...))
	}
	navOpts = append(navOpts, navigator.WithLogger(logger))

	srv := live.New(tree, cfg.Live, navOpts...)

	mux := chi.NewRouter()
	srv.Mount(mux)
	if cfg.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	return &App{tree: tree, live: srv, mux: mux}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Tree returns the navigation tree the app resolves against.
func (a *App) Tree() *route.Tree { return a.tree }

// Live returns the underlying live server, for callers that mount its
// endpoints on their own router instead of serving the App directly.
func (a *App) Live() *live.Server { return a.live }

// SessionCount returns the number of connected sessions.
func (a *App) SessionCount() int { return a.live.SessionCount() }

// Broadcast schedules a refresh on every connected session, for when
// server-side state consulted by redirect rules has changed.
func (a *App) Broadcast() { a.live.Broadcast() }

// Shutdown stops accepting connections and closes every session.
func (a *App) Shutdown(ctx context.Context) error {
	return a.live.Shutdown(ctx)
}
