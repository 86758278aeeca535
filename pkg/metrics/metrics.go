package metrics

import (
	"time"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// Validation outcome labels
const (
	OutcomeValid  = "valid"
	OutcomeCycle  = "cycle"
	OutcomeOrphan = "orphan"
	OutcomeBoth   = "cycle_and_orphan"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordStoreOperation records a routing store operation
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordValidation records a graph validation with its verdict
func (r *Registry) RecordValidation(result *routing.ValidationResult, areas int, duration time.Duration) {
	r.ValidationsTotal.WithLabelValues(validationOutcome(result)).Inc()
	r.ValidationDuration.Observe(duration.Seconds())
	r.ValidationAreaCount.Observe(float64(areas))

	if result.HasCycle {
		r.CyclesDetectedTotal.Inc()
	}
	if result.HasOrphans {
		r.OrphansDetectedTotal.Inc()
	}
}

func validationOutcome(result *routing.ValidationResult) string {
	switch {
	case result.HasCycle && result.HasOrphans:
		return OutcomeBoth
	case result.HasCycle:
		return OutcomeCycle
	case result.HasOrphans:
		return OutcomeOrphan
	default:
		return OutcomeValid
	}
}

// RecordRejectedWrite counts a replace attempt refused by validation
func (r *Registry) RecordRejectedWrite() {
	r.RejectedWritesTotal.Inc()
}

// RecordOrder records a topological ordering run
func (r *Registry) RecordOrder(status string, duration time.Duration) {
	r.OrdersTotal.WithLabelValues(status).Inc()
	r.OrderDuration.Observe(duration.Seconds())
	if status == "invariant_violation" {
		r.OrderInvariantFailures.Inc()
	}
}

// RecordEventPublished counts an event fanned out on a topic
func (r *Registry) RecordEventPublished(topic string) {
	r.EventsPublishedTotal.WithLabelValues(topic).Inc()
}

// RecordNotifyMessage counts a message crossing the socket bridge
func (r *Registry) RecordNotifyMessage(direction string) {
	r.NotifyMessagesTotal.WithLabelValues(direction).Inc()
}

// RecordSnapshot records a snapshot write attempt
func (r *Registry) RecordSnapshot(sink, status string, sizeBytes int, duration time.Duration) {
	r.SnapshotsTotal.WithLabelValues(sink, status).Inc()
	if status == "success" {
		r.SnapshotSizeBytes.Observe(float64(sizeBytes))
	}
	r.SnapshotDuration.Observe(duration.Seconds())
}

// RecordRestore records a snapshot restore attempt
func (r *Registry) RecordRestore(status string, models int) {
	r.RestoresTotal.WithLabelValues(status).Inc()
	if status == "success" {
		r.RestoredModelsTotal.Add(float64(models))
	}
}
