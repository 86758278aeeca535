package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBackupMetrics() {
	r.SnapshotsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_snapshots_total",
			Help: "Total number of snapshot writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	r.SnapshotSizeBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routing_snapshot_size_bytes",
			Help:    "Compressed snapshot size in bytes",
			Buckets: []float64{1000, 10000, 100000, 1000000, 10000000},
		},
	)

	r.SnapshotDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routing_snapshot_duration_seconds",
			Help:    "Snapshot write duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.RestoresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_restores_total",
			Help: "Total number of snapshot restores by status",
		},
		[]string{"status"},
	)

	r.RestoredModelsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "routing_restored_models_total",
			Help: "Model routings loaded back from snapshots",
		},
	)
}
