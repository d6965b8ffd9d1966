// Package middleware provides production-grade middleware for Wayfinder
// navigators.
//
// This package includes:
//   - OpenTelemetry distributed tracing middleware
//   - Prometheus metrics middleware
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware traces every resolution pass, recording
// the requested location, the final location, the redirect count, and
// on failure the error kind and redirect trace.
//
//	nav := navigator.New(tree,
//	    navigator.WithMiddleware(
//	        middleware.OpenTelemetry(),
//	    ),
//	)
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithIncludeQuery(true),
//	    middleware.WithPassFilter(func(p *navigator.Pass) bool {
//	        return p.Requested().Path() != "/healthz"
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects metrics about resolution passes:
//   - wayfinder_passes_total: Total passes by path and status
//   - wayfinder_pass_duration_seconds: Pass duration histogram
//   - wayfinder_pass_errors_total: Failed passes by path and error kind
//   - wayfinder_pass_redirects: Redirects taken by successful passes
//
//	nav := navigator.New(tree,
//	    navigator.WithMiddleware(
//	        middleware.Prometheus(),
//	    ),
//	)
//
// Then expose metrics on a separate port:
//
//	http.Handle("/metrics", promhttp.Handler())
//	go http.ListenAndServe(":9090", nil)
//
// # Context Propagation
//
// The OpenTelemetry middleware injects trace context into the pass, so
// the resolver and anything reading p.Context() downstream runs inside
// the pass span:
//
//	mw := navigator.MiddlewareFunc(func(p *navigator.Pass, next func() error) error {
//	    req, _ := http.NewRequestWithContext(p.Context(), "GET", url, nil)
//	    // req inherits the pass trace
//	    return next()
//	})
package middleware
