package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

func TestClassifyMetricsCountsTiersAndResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClassifyMetrics(reg, "api")

	m.ObserveTier(domain.TierRules, domain.OutcomeDeclined, time.Millisecond)
	m.ObserveTier(domain.TierIDDetection, domain.OutcomeError, time.Second)
	m.ObserveResult(domain.TypeOther, domain.StrategyFallback)

	if got := testutil.ToFloat64(m.tierTotal.WithLabelValues("api", "id_detection", "error")); got != 1 {
		t.Fatalf("id_detection error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.resultTotal.WithLabelValues("api", "OTHER", "fallback")); got != 1 {
		t.Fatalf("fallback result count = %v, want 1", got)
	}
}

func TestClassifyMetricsTracksBreakerState(t *testing.T) {
	m := NewClassifyMetrics(prometheus.NewRegistry(), "api")

	m.ObserveBreaker("documentai.process", "closed", "open")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("api", "documentai.process")); got != 2 {
		t.Fatalf("breaker gauge = %v, want 2", got)
	}
	m.ObserveBreaker("documentai.process", "open", "half-open")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("api", "documentai.process")); got != 1 {
		t.Fatalf("breaker gauge = %v, want 1", got)
	}
}

func TestHTTPMiddlewareNormalizesClassificationPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/classifications/abc", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/classifications/{id}", "404"))
	if got != 1 {
		t.Fatalf("request count = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "doccls_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

func TestWorkerMetricsTrackEvent(t *testing.T) {
	m := NewWorkerMetrics("worker")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := domain.ClassificationEvent{
		ID:           "evt-1",
		Status:       domain.StatusClassified,
		DocumentType: domain.TypeFormW2,
		OccurredAt:   now.Add(-3 * time.Second),
	}

	done := m.TrackEvent(event, now)
	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	done(errors.New("db down"))

	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("classified", "W2", "error")); got != 1 {
		t.Fatalf("error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(m.queueLag); got != 1 {
		t.Fatalf("queue lag series = %d, want 1", got)
	}

	failed := domain.ClassificationEvent{ID: "evt-2", Status: domain.StatusFailed, OccurredAt: now.Add(time.Minute)}
	m.TrackEvent(failed, now)(nil)
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("failed", "none", "stored")); got != 1 {
		t.Fatalf("stored failure count = %v, want 1", got)
	}
}
