package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration not initialized")
	}
	if r.StoreModelsTotal == nil {
		t.Error("StoreModelsTotal not initialized")
	}
	if r.ValidationsTotal == nil {
		t.Error("ValidationsTotal not initialized")
	}
	if r.SnapshotsTotal == nil {
		t.Error("SnapshotsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	// Record some requests
	r.RecordHTTPRequest("GET", "/routings", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("PUT", "/routings/FX-2024", "200", 200*time.Millisecond)
	r.RecordHTTPRequest("GET", "/routings", "404", 50*time.Millisecond)

	// Verify counter was incremented
	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/routings", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Counter value = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordStoreOperation(t *testing.T) {
	r := NewRegistry()

	// Record some operations
	r.RecordStoreOperation("set_routing", "success", 10*time.Millisecond)
	r.RecordStoreOperation("set_routing", "success", 20*time.Millisecond)
	r.RecordStoreOperation("set_routing", "error", 5*time.Millisecond)

	// Verify success counter
	successCounter, err := r.StoreOperationsTotal.GetMetricWithLabelValues("set_routing", "success")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := successCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Success counter = %v, want 2", metric.Counter.GetValue())
	}

	// Verify error counter
	errorCounter, err := r.StoreOperationsTotal.GetMetricWithLabelValues("set_routing", "error")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	if err := errorCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Error counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordValidation(t *testing.T) {
	r := NewRegistry()

	// Clean result
	r.RecordValidation(&routing.ValidationResult{IsValid: true}, 4, 2*time.Millisecond)

	// Cycle result
	r.RecordValidation(&routing.ValidationResult{
		HasCycle:   true,
		CycleNodes: []string{"A", "B"},
	}, 2, 1*time.Millisecond)

	validCounter, err := r.ValidationsTotal.GetMetricWithLabelValues(OutcomeValid)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := validCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Valid counter = %v, want 1", metric.Counter.GetValue())
	}

	cycleCounter, _ := r.ValidationsTotal.GetMetricWithLabelValues(OutcomeCycle)
	if err := cycleCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Cycle counter = %v, want 1", metric.Counter.GetValue())
	}

	if err := r.CyclesDetectedTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("CyclesDetectedTotal = %v, want 1", metric.Counter.GetValue())
	}
}

func TestValidationOutcome(t *testing.T) {
	tests := []struct {
		name     string
		result   *routing.ValidationResult
		expected string
	}{
		{"valid", &routing.ValidationResult{IsValid: true}, OutcomeValid},
		{"cycle", &routing.ValidationResult{HasCycle: true}, OutcomeCycle},
		{"orphan", &routing.ValidationResult{HasOrphans: true}, OutcomeOrphan},
		{"both", &routing.ValidationResult{HasCycle: true, HasOrphans: true}, OutcomeBoth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validationOutcome(tt.result); got != tt.expected {
				t.Errorf("validationOutcome() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordOrder(t *testing.T) {
	r := NewRegistry()

	r.RecordOrder("success", 1*time.Millisecond)
	r.RecordOrder("success", 2*time.Millisecond)
	r.RecordOrder("invariant_violation", 1*time.Millisecond)

	successCounter, _ := r.OrdersTotal.GetMetricWithLabelValues("success")
	var metric dto.Metric
	if err := successCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Success counter = %v, want 2", metric.Counter.GetValue())
	}

	if err := r.OrderInvariantFailures.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("OrderInvariantFailures = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordSnapshot(t *testing.T) {
	r := NewRegistry()

	r.RecordSnapshot("local", "success", 2048, 100*time.Millisecond)
	r.RecordSnapshot("s3", "error", 0, 50*time.Millisecond)

	localCounter, _ := r.SnapshotsTotal.GetMetricWithLabelValues("local", "success")
	var metric dto.Metric
	if err := localCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Local snapshot counter = %v, want 1", metric.Counter.GetValue())
	}

	if err := r.SnapshotSizeBytes.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	// Only successful snapshots record a size sample
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("Snapshot size samples = %v, want 1", metric.Histogram.GetSampleCount())
	}
}

func TestRecordRestore(t *testing.T) {
	r := NewRegistry()

	r.RecordRestore("success", 12)
	r.RecordRestore("error", 0)

	var metric dto.Metric
	if err := r.RestoredModelsTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 12 {
		t.Errorf("RestoredModelsTotal = %v, want 12", metric.Counter.GetValue())
	}
}

func TestGaugeMetrics(t *testing.T) {
	r := NewRegistry()

	// Test various gauge metrics
	r.StoreModelsTotal.Set(42)
	r.EventSubscribers.Set(3)

	tests := []struct {
		name     string
		gauge    prometheus.Gauge
		expected float64
	}{
		{"StoreModelsTotal", r.StoreModelsTotal, 42},
		{"EventSubscribers", r.EventSubscribers, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var metric dto.Metric
			if err := tt.gauge.Write(&metric); err != nil {
				t.Fatalf("Failed to write metric: %v", err)
			}

			if metric.Gauge.GetValue() != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, metric.Gauge.GetValue(), tt.expected)
			}
		})
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateSystemMetrics(time.Now().Add(-time.Hour))

	var metric dto.Metric
	if err := r.UptimeSeconds.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() < 3599 {
		t.Errorf("UptimeSeconds = %v, want >= 3599", metric.Gauge.GetValue())
	}

	if err := r.GoRoutines.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() < 1 {
		t.Errorf("GoRoutines = %v, want >= 1", metric.Gauge.GetValue())
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()

	if promRegistry == nil {
		t.Fatal("GetPrometheusRegistry() returned nil")
	}

	// Verify we can gather metrics
	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	if len(metrics) == 0 {
		t.Error("No metrics registered")
	}

	// Verify some expected metrics exist
	expectedMetrics := []string{
		"routing_store_models_total",
		"routing_cycles_detected_total",
		"routing_uptime_seconds",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestHistogramMetrics(t *testing.T) {
	r := NewRegistry()

	// Record HTTP request durations (method, path, status)
	r.HTTPRequestDuration.WithLabelValues("GET", "/routings", "200").Observe(0.1)
	r.HTTPRequestDuration.WithLabelValues("GET", "/routings", "200").Observe(0.2)
	r.HTTPRequestDuration.WithLabelValues("GET", "/routings", "200").Observe(0.15)

	histogram, err := r.HTTPRequestDuration.GetMetricWithLabelValues("GET", "/routings", "200")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}

	var metric dto.Metric
	if err := histogram.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("Sample count = %v, want 3", metric.Histogram.GetSampleCount())
	}

	// Sum should be approximately 0.45 (0.1 + 0.2 + 0.15)
	sum := metric.Histogram.GetSampleSum()
	if sum < 0.44 || sum > 0.46 {
		t.Errorf("Sample sum = %v, want ~0.45", sum)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	// Simulate concurrent HTTP requests
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordHTTPRequest("GET", "/test", "200", 10*time.Millisecond)
			}
			done <- true
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}

	// Verify counter
	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/test", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	// Should have 1000 total requests (10 goroutines * 100 requests)
	if metric.Counter.GetValue() != 1000 {
		t.Errorf("Counter = %v, want 1000", metric.Counter.GetValue())
	}
}

func TestMetricLabels(t *testing.T) {
	r := NewRegistry()

	// Test that metrics with different labels are tracked separately
	r.RecordHTTPRequest("GET", "/routings", "200", 10*time.Millisecond)
	r.RecordHTTPRequest("PUT", "/routings/FX-2024", "200", 20*time.Millisecond)
	r.RecordHTTPRequest("GET", "/routings/FX-2024/order", "200", 15*time.Millisecond)

	// Each should have count of 1
	list, _ := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/routings", "200")
	put, _ := r.HTTPRequestsTotal.GetMetricWithLabelValues("PUT", "/routings/FX-2024", "200")
	order, _ := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/routings/FX-2024/order", "200")

	var metric dto.Metric

	list.Write(&metric)
	if metric.Counter.GetValue() != 1 {
		t.Errorf("GET /routings counter = %v, want 1", metric.Counter.GetValue())
	}

	put.Write(&metric)
	if metric.Counter.GetValue() != 1 {
		t.Errorf("PUT /routings/FX-2024 counter = %v, want 1", metric.Counter.GetValue())
	}

	order.Write(&metric)
	if metric.Counter.GetValue() != 1 {
		t.Errorf("GET order counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()

	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Verify all metrics have the routing_ prefix
	for _, m := range metrics {
		name := m.GetName()
		if !strings.HasPrefix(name, "routing_") {
			t.Errorf("Metric %s does not have routing_ prefix", name)
		}
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordHTTPRequest("GET", "/routings", "200", 10*time.Millisecond)
	}
}

func BenchmarkRecordValidation(b *testing.B) {
	r := NewRegistry()
	result := &routing.ValidationResult{IsValid: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordValidation(result, 10, 1*time.Millisecond)
	}
}
