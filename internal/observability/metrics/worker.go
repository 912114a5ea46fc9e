package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

// WorkerMetrics tracks how classification events move from the queue into history.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	eventsTotal   *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	queueLag      prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "history",
			Name:        "events_total",
			Help:        "Classification events consumed, by event status, document type and store result.",
			ConstLabels: serviceLabel,
		},
		[]string{"event_status", "document_type", "result"},
	)
	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "history",
			Name:        "store_duration_seconds",
			Help:        "Time spent writing one classification event to history.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: serviceLabel,
		},
		[]string{"result"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "history",
			Name:        "events_in_flight",
			Help:        "Classification events currently being stored.",
			ConstLabels: serviceLabel,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "history",
			Name:        "queue_lag_seconds",
			Help:        "Delay between a document being classified and its event being consumed.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: serviceLabel,
		},
	)

	registry.MustRegister(eventsTotal, storeDuration, inFlight, queueLag)

	return &WorkerMetrics{
		registry:      registry,
		service:       service,
		eventsTotal:   eventsTotal,
		storeDuration: storeDuration,
		inFlight:      inFlight,
		queueLag:      queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackEvent marks event as in flight and observes its queue lag. The returned
// func must be called once with the store outcome.
func (m *WorkerMetrics) TrackEvent(event domain.ClassificationEvent, now time.Time) func(err error) {
	if !event.OccurredAt.IsZero() {
		if lag := now.Sub(event.OccurredAt); lag >= 0 {
			m.queueLag.Observe(lag.Seconds())
		}
	}
	m.inFlight.Inc()

	return func(err error) {
		m.inFlight.Dec()
		result := "stored"
		if err != nil {
			result = "error"
		}
		docType := string(event.DocumentType)
		if docType == "" {
			docType = "none"
		}
		m.eventsTotal.WithLabelValues(string(event.Status), docType, result).Inc()
		m.storeDuration.WithLabelValues(result).Observe(time.Since(now).Seconds())
	}
}
