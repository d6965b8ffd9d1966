package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/wayfinder-dev/wayfinder/pkg/location"
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

// readMetric snapshots any collectable metric into its wire form.
func readMetric(t *testing.T, v any) *dto.Metric {
	t.Helper()
	m, ok := v.(prometheus.Metric)
	if !ok {
		t.Fatalf("%T does not implement prometheus.Metric", v)
	}
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("metric Write() error: %v", err)
	}
	return &out
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return readMetric(t, c).GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	return readMetric(t, g).GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	return readMetric(t, o).GetHistogram().GetSampleCount()
}

// mustCollector fails the test if the global metrics were never set up.
func mustCollector(t *testing.T) *Collector {
	t.Helper()
	c := GetMetrics()
	if c == nil {
		t.Fatal("GetMetrics() = nil, want collector after Prometheus()")
	}
	return c
}

func TestPrometheusMiddleware_RecordsSuccessAndError(t *testing.T) {
	t.Run("success increments ok counter and observes redirects", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		p := newTestPass(t, "/test")

		err := mw.Handle(p, func() error {
			p.SetResult(&resolve.Resolution{
				Location:  location.MustParse("/test"),
				Redirects: 2,
			}, nil)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c := mustCollector(t)

		if got := metricCounterValue(t, c.passesTotal.WithLabelValues("/test", "ok")); got != 1 {
			t.Fatalf("passes_total(ok)=%v, want 1", got)
		}
		if got := metricHistogramCount(t, c.passDuration.WithLabelValues("/test")); got == 0 {
			t.Fatal("expected pass_duration_seconds histogram to have sample count > 0")
		}
		if got := metricHistogramCount(t, c.passRedirects); got != 1 {
			t.Fatalf("pass_redirects sample count=%v, want 1", got)
		}
	})

	t.Run("error increments error counter labelled by kind", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		p := newTestPass(t, "/test")

		err := mw.Handle(p, func() error {
			return &resolve.Error{
				Kind:     resolve.ErrRedirectLoop,
				Location: "/test",
				Trace:    []string{"/test", "/other", "/test"},
			}
		})
		if err == nil {
			t.Fatal("expected error to propagate")
		}

		c := mustCollector(t)

		if got := metricCounterValue(t, c.passesTotal.WithLabelValues("/test", "redirect_loop")); got != 1 {
			t.Fatalf("passes_total(redirect_loop)=%v, want 1", got)
		}
		if got := metricCounterValue(t, c.passErrors.WithLabelValues("/test", "redirect_loop")); got != 1 {
			t.Fatalf("pass_errors_total(redirect_loop)=%v, want 1", got)
		}
		if got := metricHistogramCount(t, c.passRedirects); got != 0 {
			t.Fatalf("pass_redirects sample count=%v, want 0 for failed pass", got)
		}
	})
}

func TestPrometheusMiddleware_EmptyPathNormalizesToSlash(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	mw := Prometheus(WithRegistry(reg))
	p := newTestPass(t, "")

	err := mw.Handle(p, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := mustCollector(t)
	if got := metricCounterValue(t, c.passesTotal.WithLabelValues("/", "ok")); got != 1 {
		t.Fatalf("passes_total(/,ok)=%v, want 1", got)
	}
}

func TestMetricsRecordFunctions_WithInitializedMetrics(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	_ = Prometheus(WithRegistry(reg)) // initialize global metrics
	c := mustCollector(t)

	RecordSessionOpen()
	RecordSessionOpen()
	RecordSessionClose()
	RecordRefresh()
	RecordWebSocketError("close")

	if got := metricGaugeValue(t, c.activeSessions); got != 1 {
		t.Fatalf("active_sessions=%v, want 1 (open+open+close)", got)
	}
	if got := metricCounterValue(t, c.refreshesTotal); got != 1 {
		t.Fatalf("refreshes_total=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.wsErrors.WithLabelValues("close")); got != 1 {
		t.Fatalf("websocket_errors_total(close)=%v, want 1", got)
	}
}
