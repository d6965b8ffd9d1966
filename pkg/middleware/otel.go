package middleware

import (
	"fmt"
	"time"

	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for Wayfinder applications.
const defaultTracerName = "wayfinder"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "wayfinder").
	TracerName string

	// IncludeQuery includes the requested query string in traces.
	// May contain sensitive information - disabled by default.
	IncludeQuery bool

	// IncludeTrace includes the redirect trace on failed passes.
	// Enabled by default.
	IncludeTrace bool

	// Filter determines which passes to trace.
	// Return true to trace the pass, false to skip.
	// If nil, all passes are traced.
	Filter func(p *navigator.Pass) bool

	// AttributeExtractor extracts custom attributes from the pass.
	// Called for each traced pass.
	AttributeExtractor func(p *navigator.Pass) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) { c.TracerName = name }
}

// WithIncludeQuery controls whether the query string is recorded on
// span attributes.
func WithIncludeQuery(include bool) OTelOption {
	return func(c *OTelConfig) { c.IncludeQuery = include }
}

// WithIncludeTrace controls whether failed passes record their redirect
// trace.
func WithIncludeTrace(include bool) OTelOption {
	return func(c *OTelConfig) { c.IncludeTrace = include }
}

// WithPassFilter sets a predicate deciding which passes get a span.
func WithPassFilter(filter func(p *navigator.Pass) bool) OTelOption {
	return func(c *OTelConfig) { c.Filter = filter }
}

// WithAttributeExtractor sets a custom attribute extractor, called once
// per traced pass.
func WithAttributeExtractor(extractor func(p *navigator.Pass) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) { c.AttributeExtractor = extractor }
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		IncludeTrace: true,
	}
}

// OpenTelemetry creates middleware that traces every resolution pass.
//
// The middleware:
//   - Creates a span per pass named after the requested path
//   - Injects trace context into the pass so redirect rules inherit it
//   - Records errors, error kind, and the redirect trace on failure
//   - Records the final location and redirect count on success
//
// Example:
//
//	nav := navigator.New(tree,
//	    navigator.WithMiddleware(
//	        middleware.OpenTelemetry(
//	            middleware.WithTracerName("my-app"),
//	        ),
//	    ),
//	)
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before starting the navigator:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) navigator.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return navigator.MiddlewareFunc(func(p *navigator.Pass, next func() error) error {
		// Apply filter if configured
		if config.Filter != nil && !config.Filter(p) {
			return next()
		}

		// Build span attributes
		attrs := []attribute.KeyValue{
			attribute.String("wayfinder.requested", p.Requested().Path()),
		}

		// Add query string if enabled
		if config.IncludeQuery {
			if q := p.Requested().RawQuery(); q != "" {
				attrs = append(attrs, attribute.String("wayfinder.query", q))
			}
		}

		// Add custom attributes
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(p)...)
		}

		// Start span
		spanCtx, span := config.tracer.Start(
			p.Context(),
			formatSpanName(p),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		defer span.End()

		// Inject trace context into the pass so the resolver and any
		// redirect rules consulting p.Context() run inside the span.
		p.SetContext(spanCtx)

		// Execute the rest of the chain
		err := next()

		// Record result
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("wayfinder.kind", resolve.Kind(err)))
			if config.IncludeTrace {
				if tr := resolve.Trace(err); len(tr) > 0 {
					span.SetAttributes(attribute.StringSlice("wayfinder.trace", tr))
				}
			}
		} else {
			span.SetStatus(codes.Ok, "")
			if res := p.Resolution(); res != nil {
				span.SetAttributes(
					attribute.String("wayfinder.final", res.Location.Full()),
					attribute.Int("wayfinder.redirects", res.Redirects),
				)
			}
		}

		return err
	})
}

// SpanFromPass returns the span recording p. When the OpenTelemetry
// middleware is not installed the returned span is a no-op, so callers
// can set attributes unconditionally.
//
// Example:
//
//	mw := navigator.MiddlewareFunc(func(p *navigator.Pass, next func() error) error {
//	    middleware.SpanFromPass(p).SetAttributes(attribute.Int("my.count", 42))
//	    return next()
//	})
func SpanFromPass(p *navigator.Pass) trace.Span {
	return trace.SpanFromContext(p.Context())
}

// formatSpanName creates a span name from the pass.
func formatSpanName(p *navigator.Pass) string {
	path := p.Requested().Path()
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("wayfinder %s", path)
}
