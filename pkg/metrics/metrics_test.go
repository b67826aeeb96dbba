package metrics

import (
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitMetrics(t *testing.T) {
	// Create fresh registry to avoid conflicts
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "service")

	if m == nil {
		t.Fatal("InitMetrics returned nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal should not be nil")
	}
	if m.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration should not be nil")
	}
	if m.SolveOperationsTotal == nil {
		t.Error("SolveOperationsTotal should not be nil")
	}
}

func TestGet(t *testing.T) {
	// Reset default metrics
	defaultMetrics = nil

	m := Get()
	if m == nil {
		t.Error("Get() should not return nil")
	}

	// Second call should return same instance
	m2 := Get()
	if m2 != m {
		t.Error("Get() should return same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "http")

	// Should not panic
	m.RecordHTTPRequest("POST", "/api/v1/solve", "200", 100*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/solve", "400", 50*time.Millisecond)
}

func TestRecordSolveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "solve")

	m.RecordSolveOperation("bellman-ford", true, 500*time.Millisecond, 100.5)
	m.RecordSolveOperation("karp", false, 1*time.Second, 0)
}

func TestRecordGraphSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "graph")

	m.RecordGraphSize("solve", 100, 500)
	m.RecordGraphSize("validate", 50, 200)
}

func TestRecordSolveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "counters")

	m.RecordSolveCounters("bellman-ford", 12, 3)
	m.RecordSolveCounters("karp", 4, 0)
}

func TestRecordCacheRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "cache")

	m.RecordCacheRequest(true)
	m.RecordCacheRequest(false)
}

func TestSetServiceInfo(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "info")

	m.SetServiceInfo("1.0.0", "production")
}

func TestRuntimeCollector(t *testing.T) {
	collector := NewRuntimeCollector("test", "runtime")

	// Test Describe
	descCh := make(chan *prometheus.Desc, 10)
	collector.Describe(descCh)
	close(descCh)

	count := 0
	for range descCh {
		count++
	}
	if count != 7 {
		t.Errorf("expected 7 descriptors, got %d", count)
	}

	// Test Collect
	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	count = 0
	for range metricCh {
		count++
	}
	if count < 6 {
		t.Errorf("expected at least 6 metrics, got %d", count)
	}
}

func TestPoolCollector(t *testing.T) {
	collector := NewPoolCollector("test", "pool", func() (int, int) {
		return 3, 8
	})

	descCh := make(chan *prometheus.Desc, 4)
	collector.Describe(descCh)
	close(descCh)

	count := 0
	for range descCh {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 descriptors, got %d", count)
	}

	metricCh := make(chan prometheus.Metric, 4)
	collector.Collect(metricCh)
	close(metricCh)

	var values []float64
	for m := range metricCh {
		var out dto.Metric
		if err := m.Write(&out); err != nil {
			t.Fatalf("Write: %v", err)
		}
		values = append(values, out.GetGauge().GetValue())
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(values))
	}
	if values[0] != 3 || values[1] != 8 {
		t.Errorf("gauges = %v, want [3 8]", values)
	}
}

func TestHandler(t *testing.T) {
	handler := Handler()
	if handler == nil {
		t.Error("Handler() should not return nil")
	}
}

func TestRuntimeCollector_GCPause(t *testing.T) {
	// Force a GC to ensure we have GC data
	runtime.GC()

	collector := NewRuntimeCollector("test", "gc")
	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	// Should have collected GC pause metric
	found := false
	for range metricCh {
		found = true
	}
	if !found {
		t.Error("should have collected at least one metric")
	}
}
