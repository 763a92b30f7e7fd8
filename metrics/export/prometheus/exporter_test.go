package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MForofontov/sessionauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot sessionauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessionauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestCollectorOnlyDroppedWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters:   map[sessionauth.MetricID]uint64{},
			Histograms: map[sessionauth.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(c); n != 1 {
		t.Fatalf("expected only the audit dropped counter, got %d metrics", n)
	}
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricRefreshSuccess: 7,
				sessionauth.MetricRefreshRevoked: 2,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 3,
	})

	expected := `
# HELP sessionauth_refresh_success_total Successful refreshes.
# TYPE sessionauth_refresh_success_total counter
sessionauth_refresh_success_total 7
# HELP sessionauth_refresh_revoked_total Refreshes with a blacklisted refresh token.
# TYPE sessionauth_refresh_revoked_total counter
sessionauth_refresh_revoked_total 2
# HELP sessionauth_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE sessionauth_audit_dropped_total counter
sessionauth_audit_dropped_total 3
# HELP sessionauth_refresh_latency_seconds Refresh latency.
# TYPE sessionauth_refresh_latency_seconds histogram
sessionauth_refresh_latency_seconds_bucket{le="0.005"} 1
sessionauth_refresh_latency_seconds_bucket{le="0.01"} 3
sessionauth_refresh_latency_seconds_bucket{le="0.025"} 6
sessionauth_refresh_latency_seconds_bucket{le="0.05"} 10
sessionauth_refresh_latency_seconds_bucket{le="0.1"} 15
sessionauth_refresh_latency_seconds_bucket{le="0.25"} 21
sessionauth_refresh_latency_seconds_bucket{le="0.5"} 28
sessionauth_refresh_latency_seconds_bucket{le="+Inf"} 36
sessionauth_refresh_latency_seconds_sum 0
sessionauth_refresh_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sessionauth_refresh_success_total",
		"sessionauth_refresh_revoked_total",
		"sessionauth_audit_dropped_total",
		"sessionauth_refresh_latency_seconds",
	)
	if err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	cfg := sessionauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("prometheus-secret-prometheus-0000")
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := sessionauth.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Refresh(t.Context(), ""); err == nil {
		t.Fatal("expected missing refresh token to fail")
	}

	srv := httptest.NewServer(Handler(NewRegistry(NewCollector(engine))))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{
		"sessionauth_refresh_missing_total 1",
		"sessionauth_refresh_latency_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in output, got:\n%s", want, body)
		}
	}
}

func TestCollectorRegistersCleanly(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollectorFromSource(fakeSource{})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather: %v", err)
	}
}
