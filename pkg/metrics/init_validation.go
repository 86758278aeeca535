package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initValidationMetrics() {
	r.ValidationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_validations_total",
			Help: "Total number of graph validations by outcome",
		},
		[]string{"outcome"},
	)

	r.ValidationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routing_validation_duration_seconds",
			Help:    "Graph validation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.ValidationAreaCount = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routing_validation_area_count",
			Help:    "Number of areas per validated graph",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	r.CyclesDetectedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_cycles_detected_total",
			Help: "Total number of validations that found a cycle",
		},
	)

	r.OrphansDetectedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_orphans_detected_total",
			Help: "Total number of validations that found orphan areas",
		},
	)

	r.RejectedWritesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_rejected_writes_total",
			Help: "Total number of replace attempts refused by validation",
		},
	)

	r.OrdersTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_orders_total",
			Help: "Total number of topological ordering runs",
		},
		[]string{"status"},
	)

	r.OrderDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routing_order_duration_seconds",
			Help:    "Topological ordering duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.OrderInvariantFailures = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_order_invariant_failures_total",
			Help: "Orderings that hit a cycle in supposedly validated data",
		},
	)
}
