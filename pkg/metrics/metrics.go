// Package metrics provides Prometheus metrics for the possync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsConsumed tracks broker deliveries by entity, verb and outcome
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "dispatcher",
			Name:      "events_total",
			Help:      "Total number of POS events consumed by entity, verb and outcome",
		},
		[]string{"entity", "verb", "outcome"},
	)

	// DeadLetters tracks messages sent to the dead letter exchange
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "dispatcher",
			Name:      "dead_letters_total",
			Help:      "Total number of messages dead-lettered by reason",
		},
		[]string{"reason"},
	)

	// ReconcileDuration tracks order reconciliation duration in seconds
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "possync",
			Subsystem: "reconciler",
			Name:      "order_duration_seconds",
			Help:      "Duration of order reconciliation transactions in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// OrphanRenames tracks orphan orders renamed onto their real shift identity
	OrphanRenames = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "reconciler",
			Name:      "orphan_renames_total",
			Help:      "Total number of orphan orders renamed onto their real external id",
		},
	)

	// PaymentsCreated tracks payments created from settlement lines
	PaymentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "reconciler",
			Name:      "payments_created_total",
			Help:      "Total number of payments created from settlement lines",
		},
	)

	// HeartbeatsProcessed tracks heartbeats by resulting status
	HeartbeatsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "heartbeat",
			Name:      "processed_total",
			Help:      "Total number of heartbeats processed by resulting status",
		},
		[]string{"status"},
	)

	// HeartbeatDiscontinuities tracks terminal instance-id changes
	HeartbeatDiscontinuities = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "heartbeat",
			Name:      "discontinuities_total",
			Help:      "Total number of terminal instance-id discontinuities detected",
		},
	)

	// AlertsPublished tracks operator alerts published to Kafka
	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "alerts",
			Name:      "published_total",
			Help:      "Total number of operator alerts published by status",
		},
		[]string{"status"},
	)
)

// RecordEvent records a consumed event outcome.
func RecordEvent(entity, verb, outcome string) {
	EventsConsumed.WithLabelValues(entity, verb, outcome).Inc()
}

// RecordDeadLetter records a dead-lettered message.
func RecordDeadLetter(reason string) {
	DeadLetters.WithLabelValues(reason).Inc()
}
