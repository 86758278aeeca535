package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Store Metrics
	StoreModelsTotal       prometheus.Gauge
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Validation Metrics
	ValidationsTotal     *prometheus.CounterVec
	ValidationDuration   prometheus.Histogram
	ValidationAreaCount  prometheus.Histogram
	CyclesDetectedTotal  prometheus.Counter
	OrphansDetectedTotal prometheus.Counter
	RejectedWritesTotal  prometheus.Counter

	// Ordering Metrics
	OrdersTotal            *prometheus.CounterVec
	OrderDuration          prometheus.Histogram
	OrderInvariantFailures prometheus.Counter

	// Event Metrics
	EventsPublishedTotal *prometheus.CounterVec
	EventSubscribers     prometheus.Gauge
	NotifyMessagesTotal  *prometheus.CounterVec

	// Backup Metrics
	SnapshotsTotal      *prometheus.CounterVec
	SnapshotSizeBytes   prometheus.Histogram
	SnapshotDuration    prometheus.Histogram
	RestoresTotal       *prometheus.CounterVec
	RestoredModelsTotal prometheus.Counter

	// Security Metrics
	AuthFailuresTotal prometheus.Counter
	TokensIssuedTotal prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initHTTPMetrics()
	r.initStoreMetrics()
	r.initValidationMetrics()
	r.initEventMetrics()
	r.initBackupMetrics()
	r.initSecurityMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
