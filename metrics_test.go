package network

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetricsCollectorWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	mc := NewMetricsCollectorWithRegistry(registry)

	if mc == nil {
		t.Fatal("NewMetricsCollectorWithRegistry() returned nil")
	}

	mc.RecordRequestStart("GET", "https://api.example.com/data")
	mc.RecordRequest("GET", "https://api.example.com/data", 200, 15*time.Millisecond)
	mc.RecordRequestEnd("GET", "https://api.example.com/data")
	mc.RecordRetry("GET", "https://api.example.com/data", 2)
	mc.RecordCircuitBreakerState("https://api.example.com/data", StateOpen)
	mc.RecordRateLimiterRejection("host:api.example.com")
	mc.RecordProxyAcquisition("10.0.0.1:8080")
	mc.RecordProxyFailure("10.0.0.1:8080")
	mc.RecordDeduplicationHit("GET", "https://api.example.com/data")
	mc.RecordError(string(KindServerError), "GET", "https://api.example.com/data")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}

	found := make(map[string]bool)
	for _, family := range families {
		found[family.GetName()] = true
	}

	for _, name := range []string{
		"network_requests_total",
		"network_request_duration_seconds",
		"network_retries_total",
		"network_circuit_breaker_state",
		"network_rate_limiter_rejections_total",
		"network_proxy_acquisitions_total",
		"network_proxy_failures_total",
		"network_deduplication_hits_total",
		"network_errors_total",
	} {
		if !found[name] {
			t.Errorf("Expected metric family %s to be registered", name)
		}
	}
}

func TestNilMetricsCollectorIsNoop(t *testing.T) {
	var mc *MetricsCollector

	// Every recorder must tolerate a nil receiver.
	mc.RecordRequest("GET", "endpoint", 200, time.Millisecond)
	mc.RecordRequestStart("GET", "endpoint")
	mc.RecordRequestEnd("GET", "endpoint")
	mc.RecordRetry("GET", "endpoint", 1)
	mc.RecordCircuitBreakerState("endpoint", StateClosed)
	mc.RecordRateLimiterRejection("key")
	mc.RecordProxyAcquisition("proxy")
	mc.RecordProxyFailure("proxy")
	mc.RecordDeduplicationHit("GET", "endpoint")
	mc.RecordError("kind", "GET", "endpoint")
}
