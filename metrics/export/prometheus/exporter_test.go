package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/tokengate"
)

type fakeSource struct {
	snapshot tokengate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() tokengate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: tokengate.MetricsSnapshot{
			Counters:   map[tokengate.MetricID]uint64{},
			Histograms: map[tokengate.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderCountersFamilyAndHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: tokengate.MetricsSnapshot{
			Counters: map[tokengate.MetricID]uint64{
				tokengate.MetricLoginSuccess:     7,
				tokengate.MetricLoginRateLimited: 3,
				tokengate.MetricAPIRateLimited:   1,
			},
			Histograms: map[tokengate.MetricID][]uint64{
				tokengate.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"tokengate_login_success_total 7",
		`tokengate_rate_limited_total{policy="login"} 3`,
		`tokengate_rate_limited_total{policy="api"} 1`,
		`tokengate_rate_limited_total{policy="register"} 0`,
		`tokengate_authorize_latency_seconds_bucket{le="0.005"} 1`,
		`tokengate_authorize_latency_seconds_bucket{le="+Inf"} 36`,
		"tokengate_authorize_latency_seconds_count 36",
		"tokengate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE tokengate_rate_limited_total counter") != 1 {
		t.Fatalf("expected one TYPE line for the rate-limited family, got:\n%s", out)
	}
}

func TestRenderSkipsDisabledHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: tokengate.MetricsSnapshot{
			Counters:   map[tokengate.MetricID]uint64{tokengate.MetricLoginSuccess: 1},
			Histograms: map[tokengate.MetricID][]uint64{},
		},
	})
	if strings.Contains(exp.Render(), "authorize_latency") {
		t.Fatal("expected no histogram when latency histograms are disabled")
	}
}

func TestHandlerFromEngine(t *testing.T) {
	cfg := tokengate.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	engine, err := tokengate.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Authorize(context.Background(), "")

	rec := httptest.NewRecorder()
	New(engine).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tokengate_authorize_no_token_total 1") {
		t.Fatalf("expected no-token counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewFromSource(fakeSource{
		snapshot: tokengate.MetricsSnapshot{
			Counters: map[tokengate.MetricID]uint64{
				tokengate.MetricLoginSuccess:     1000,
				tokengate.MetricLoginFailure:     40,
				tokengate.MetricAuthorizeSuccess: 800,
			},
			Histograms: map[tokengate.MetricID][]uint64{
				tokengate.MetricAuthorizeLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
