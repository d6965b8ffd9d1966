package middleware

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	Namespace   string                // metric namespace, default "wayfinder"
	Subsystem   string                // optional subsystem
	ConstLabels prometheus.Labels     // labels stamped on every metric
	Buckets     []float64             // pass duration buckets, default prometheus.DefBuckets
	Registry    prometheus.Registerer // default prometheus.DefaultRegisterer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(ns string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = ns }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(sub string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = sub }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the pass duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(reg prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = reg }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "wayfinder",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for Wayfinder.
type metrics struct {
	passesTotal    *prometheus.CounterVec
	passDuration   *prometheus.HistogramVec
	passErrors     *prometheus.CounterVec
	passRedirects  prometheus.Histogram
	activeSessions prometheus.Gauge
	refreshesTotal prometheus.Counter
	wsErrors       *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of resolution passes by path and status",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "status"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Resolution pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path"}),

		passErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_errors_total",
			Help:        "Total number of failed resolution passes by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "kind"}),

		passRedirects: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_redirects",
			Help:        "Redirects taken by successful resolution passes",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 3, 5, 8},
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),

		refreshesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "refreshes_total",
			Help:        "Total number of refresh triggers received from clients",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// resolution passes.
//
// Metrics collected:
//   - wayfinder_passes_total: Counter of passes by path and status
//   - wayfinder_pass_duration_seconds: Histogram of pass duration
//   - wayfinder_pass_errors_total: Counter of failed passes by path and error kind
//   - wayfinder_pass_redirects: Histogram of redirects taken by successful passes
//   - wayfinder_active_sessions: Gauge of live sessions (when session hooks are used)
//   - wayfinder_refreshes_total: Counter of client refresh triggers
//   - wayfinder_websocket_errors_total: Counter of WebSocket errors
//
// The status label is "ok" for successful passes and the error kind
// reported by resolve.Kind otherwise, so its cardinality stays bounded
// no matter what rules return.
//
// Example:
//
//	nav := navigator.New(tree,
//	    navigator.WithMiddleware(
//	        middleware.Prometheus(
//	            middleware.WithNamespace("myapp"),
//	        ),
//	    ),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) navigator.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := sharedMetrics(config)

	return navigator.MiddlewareFunc(func(p *navigator.Pass, next func() error) error {
		path := p.Requested().Path()
		if path == "" {
			path = "/"
		}

		start := time.Now()
		err := next()
		m.passDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

		status := "ok"
		if err != nil {
			status = resolve.Kind(err)
			m.passErrors.WithLabelValues(path, status).Inc()
		} else if res := p.Resolution(); res != nil {
			m.passRedirects.Observe(float64(res.Redirects))
		}
		m.passesTotal.WithLabelValues(path, status).Inc()

		return err
	})
}

// sharedMetrics returns the process-wide metrics set, registering it on
// first use. Later calls reuse the first registration regardless of
// their options, since Prometheus rejects duplicate metric names.
func sharedMetrics(config MetricsConfig) *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	return globalMetrics
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordSessionOpen records an accepted WebSocket session.
func RecordSessionOpen() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Inc()
	}
}

// RecordSessionClose records a closed WebSocket session.
func RecordSessionClose() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Dec()
	}
}

// RecordRefresh records a refresh trigger received from a client.
func RecordRefresh() {
	if globalMetrics != nil {
		globalMetrics.refreshesTotal.Inc()
	}
}

// RecordWebSocketError records a WebSocket error.
func RecordWebSocketError(errorType string) {
	if globalMetrics != nil {
		globalMetrics.wsErrors.WithLabelValues(errorType).Inc()
	}
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the metrics for use in custom registrations.
// This allows collecting Wayfinder metrics alongside other application
// metrics.
type Collector struct {
	passesTotal    *prometheus.CounterVec
	passDuration   *prometheus.HistogramVec
	passErrors     *prometheus.CounterVec
	passRedirects  prometheus.Histogram
	activeSessions prometheus.Gauge
	refreshesTotal prometheus.Counter
	wsErrors       *prometheus.CounterVec
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		passesTotal:    globalMetrics.passesTotal,
		passDuration:   globalMetrics.passDuration,
		passErrors:     globalMetrics.passErrors,
		passRedirects:  globalMetrics.passRedirects,
		activeSessions: globalMetrics.activeSessions,
		refreshesTotal: globalMetrics.refreshesTotal,
		wsErrors:       globalMetrics.wsErrors,
	}
}
