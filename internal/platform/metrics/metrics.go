package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification engine.
type Metrics struct {
	// Lifecycle transitions by operation and resulting status
	Transitions *prometheus.CounterVec

	// Soft anomalies by code
	Anomalies *prometheus.CounterVec

	// Optimistic-concurrency conflicts observed on save
	SaveConflicts prometheus.Counter

	// Integrity mismatches discovered; any increment warrants investigation
	IntegrityMismatches prometheus.Counter

	// Engine operation latency by operation
	OperationLatency *prometheus.HistogramVec

	// HTTP request latency by route
	RequestLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caretrail_visit_transitions_total",
			Help: "Total visit lifecycle transitions by operation and resulting status",
		}, []string{"operation", "status"}),

		Anomalies: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caretrail_visit_anomalies_total",
			Help: "Total soft anomalies recorded on visits by code",
		}, []string{"code"}),

		SaveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caretrail_visit_save_conflicts_total",
			Help: "Total optimistic-concurrency conflicts on visit saves",
		}),

		IntegrityMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caretrail_integrity_mismatches_total",
			Help: "Total integrity hash mismatches discovered",
		}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caretrail_engine_operation_duration_seconds",
			Help:    "Duration of engine operations including store round trips",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caretrail_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
	}
}

// IncrementTransition records a lifecycle transition.
func (m *Metrics) IncrementTransition(operation, status string) {
	if m != nil {
		m.Transitions.WithLabelValues(operation, status).Inc()
	}
}

// IncrementAnomaly records a soft anomaly.
func (m *Metrics) IncrementAnomaly(code string) {
	if m != nil {
		m.Anomalies.WithLabelValues(code).Inc()
	}
}

// IncrementSaveConflict records an optimistic-concurrency conflict.
func (m *Metrics) IncrementSaveConflict() {
	if m != nil {
		m.SaveConflicts.Inc()
	}
}

// IncrementIntegrityMismatch records a discovered integrity mismatch.
func (m *Metrics) IncrementIntegrityMismatch() {
	if m != nil {
		m.IntegrityMismatches.Inc()
	}
}

// ObserveOperationLatency records an engine operation duration.
func (m *Metrics) ObserveOperationLatency(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveRequestLatency records an HTTP request duration.
func (m *Metrics) ObserveRequestLatency(route string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}
