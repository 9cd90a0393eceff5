package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

// RunMetrics records what a maintenance pass did to the guides table.
type RunMetrics struct {
	registry *prometheus.Registry
	service  string

	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	coverage       *prometheus.GaugeVec
	runDuration    *prometheus.HistogramVec
	eventsTotal    *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
}

func NewRunMetrics(service string) *RunMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	actionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "hub",
			Subsystem:   "reconcile",
			Name:        "actions_total",
			Help:        "Executed plan actions by kind and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "status"},
	)
	actionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "hub",
			Subsystem:   "reconcile",
			Name:        "action_duration_seconds",
			Help:        "Time spent executing one plan action.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)
	coverage := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "hub",
			Name:        "coverage_buckets",
			Help:        "Filter buckets per dimension and coverage state at the last audit.",
			ConstLabels: constLabels,
		},
		[]string{"dimension", "state"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "hub",
			Name:        "run_duration_seconds",
			Help:        "Wall time of a hubctl command.",
			Buckets:     []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		},
		[]string{"command"},
	)
	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "hub",
			Name:        "guide_events_total",
			Help:        "Guide change events consumed by watch.",
			ConstLabels: constLabels,
		},
		[]string{"type"},
	)

	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "hub",
			Subsystem:   "store",
			Name:        "retries_total",
			Help:        "Retried backend calls by operation.",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	registry.MustRegister(actionsTotal, actionDuration, coverage, runDuration, eventsTotal, retriesTotal)

	return &RunMetrics{
		registry:       registry,
		service:        service,
		actionsTotal:   actionsTotal,
		actionDuration: actionDuration,
		coverage:       coverage,
		runDuration:    runDuration,
		eventsTotal:    eventsTotal,
		retriesTotal:   retriesTotal,
	}
}

func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RunMetrics) ObserveAction(result domain.ActionResult) {
	kind := string(result.Action.Kind)
	m.actionsTotal.WithLabelValues(kind, string(result.Status)).Inc()
	if result.Duration > 0 {
		m.actionDuration.WithLabelValues(kind).Observe(result.Duration.Seconds())
	}
}

// ObserveCoverage replaces the bucket gauges with the states in report.
func (m *RunMetrics) ObserveCoverage(report domain.CoverageReport) {
	m.coverage.Reset()
	for dim, states := range report.StateCounts() {
		for state, n := range states {
			m.coverage.WithLabelValues(dim, string(state)).Set(float64(n))
		}
	}
}

func (m *RunMetrics) ObserveRun(command string, duration time.Duration) {
	if duration < 0 {
		return
	}
	m.runDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *RunMetrics) ObserveEvent(event domain.GuideEvent) {
	m.eventsTotal.WithLabelValues(string(event.Type)).Inc()
}

func (m *RunMetrics) ObserveRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

// Push sends the registry to a Pushgateway under job "hubctl" grouped by
// command. An empty url is a no-op.
func (m *RunMetrics) Push(ctx context.Context, url, command string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, "hubctl").
		Gatherer(m.registry).
		Grouping("command", command).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
