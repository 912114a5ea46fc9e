package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const namespace = "doccls"

// ClassifyMetrics observes the classification pipeline and upstream circuit breakers.
type ClassifyMetrics struct {
	service string

	tierTotal    *prometheus.CounterVec
	tierDuration *prometheus.HistogramVec
	resultTotal  *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func NewClassifyMetrics(reg prometheus.Registerer, service string) *ClassifyMetrics {
	tierTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "tier_total",
			Help:      "Classification tier attempts by outcome.",
		},
		[]string{"service", "tier", "outcome"},
	)
	tierDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "tier_duration_seconds",
			Help:      "Classification tier duration in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"service", "tier"},
	)
	resultTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "results_total",
			Help:      "Classified documents by type and deciding strategy.",
		},
		[]string{"service", "document_type", "strategy"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	reg.MustRegister(tierTotal, tierDuration, resultTotal, breakerState)

	return &ClassifyMetrics{
		service:      service,
		tierTotal:    tierTotal,
		tierDuration: tierDuration,
		resultTotal:  resultTotal,
		breakerState: breakerState,
	}
}

func (m *ClassifyMetrics) ObserveTier(tier domain.Tier, outcome domain.TierOutcome, duration time.Duration) {
	m.tierTotal.WithLabelValues(m.service, string(tier), string(outcome)).Inc()
	m.tierDuration.WithLabelValues(m.service, string(tier)).Observe(duration.Seconds())
}

func (m *ClassifyMetrics) ObserveResult(docType domain.DocumentType, strategy domain.Strategy) {
	m.resultTotal.WithLabelValues(m.service, string(docType), string(strategy)).Inc()
}

// ObserveBreaker matches resilience.StateObserver.
func (m *ClassifyMetrics) ObserveBreaker(operation, _, to string) {
	m.breakerState.WithLabelValues(m.service, operation).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
