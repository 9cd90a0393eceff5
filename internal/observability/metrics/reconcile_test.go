package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func TestObserveActionCountsByKindAndStatus(t *testing.T) {
	m := NewRunMetrics("hubctl")
	m.ObserveAction(domain.ActionResult{Action: domain.Action{Kind: domain.ActionRelabel}, Status: domain.ActionApplied, Duration: 20 * time.Millisecond})
	m.ObserveAction(domain.ActionResult{Action: domain.Action{Kind: domain.ActionRelabel}, Status: domain.ActionApplied})
	m.ObserveAction(domain.ActionResult{Action: domain.Action{Kind: domain.ActionCreateMinimal}, Status: domain.ActionFailed})

	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("relabel", "applied")); got != 2 {
		t.Fatalf("expected 2 applied relabels, got %v", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("create_minimal", "failed")); got != 1 {
		t.Fatalf("expected 1 failed create, got %v", got)
	}
}

func TestObserveCoverageReplacesPreviousStates(t *testing.T) {
	m := NewRunMetrics("hubctl")
	m.ObserveCoverage(domain.CoverageReport{Buckets: []domain.BucketCoverage{
		{Dimension: "unit", Value: "Stories", State: domain.BucketEmpty},
		{Dimension: "unit", Value: "Products", State: domain.BucketEmpty},
	}})
	m.ObserveCoverage(domain.CoverageReport{Buckets: []domain.BucketCoverage{
		{Dimension: "unit", Value: "Stories", State: domain.BucketSingle},
		{Dimension: "unit", Value: "Products", State: domain.BucketEmpty},
	}})

	if got := testutil.ToFloat64(m.coverage.WithLabelValues("unit", "empty")); got != 1 {
		t.Fatalf("expected 1 empty bucket, got %v", got)
	}
	if got := testutil.ToFloat64(m.coverage.WithLabelValues("unit", "single")); got != 1 {
		t.Fatalf("expected 1 single bucket, got %v", got)
	}
}

func TestPushSendsRegistry(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewRunMetrics("hubctl")
	m.ObserveRun("reconcile", time.Second)
	if err := m.Push(context.Background(), server.URL, "reconcile"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if !strings.Contains(path, "/job/hubctl/command/reconcile") {
		t.Fatalf("unexpected push path %q", path)
	}

	if err := m.Push(context.Background(), "", "reconcile"); err != nil {
		t.Fatalf("empty url should be a no-op, got %v", err)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewRunMetrics("hubctl")
	m.ObserveEvent(domain.GuideEvent{Type: domain.GuideUpdated})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `hub_guide_events_total{service="hubctl",type="guide.updated"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", rec.Body.String())
	}
}

func TestObserveRetryCountsByOperation(t *testing.T) {
	m := NewRunMetrics("hubctl")
	m.ObserveRetry("postgrest.select", 1)
	m.ObserveRetry("postgrest.select", 2)
	m.ObserveRetry("nats.publish", 1)

	if got := testutil.ToFloat64(m.retriesTotal.WithLabelValues("postgrest.select")); got != 2 {
		t.Fatalf("expected 2 select retries, got %v", got)
	}
	if got := testutil.ToFloat64(m.retriesTotal.WithLabelValues("nats.publish")); got != 1 {
		t.Fatalf("expected 1 publish retry, got %v", got)
	}
}
