package network

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle
// and reliability layers. It is safe for concurrent use; a nil collector
// is a no-op.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	circuitBreakerState *prometheus.GaugeVec

	rateLimiterRejections *prometheus.CounterVec

	proxyAcquisitions *prometheus.CounterVec
	proxyFailures     *prometheus.CounterVec

	deduplicationHits *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "network_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "network_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		circuitBreakerState: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "network_circuit_breaker_state",
				Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"endpoint"},
		),
		rateLimiterRejections: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_rate_limiter_rejections_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"key"},
		),
		proxyAcquisitions: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_proxy_acquisitions_total",
				Help: "Total number of proxy connections acquired",
			},
			[]string{"proxy_id"},
		),
		proxyFailures: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_proxy_failures_total",
				Help: "Total number of proxy connections blamed for failures",
			},
			[]string{"proxy_id"},
		),
		deduplicationHits: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_deduplication_hits_total",
				Help: "Total number of requests coalesced into an in-flight duplicate",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind", "method", "endpoint"},
		),
		registerer: registerer,
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordCircuitBreakerState sets the breaker state gauge.
func (mc *MetricsCollector) RecordCircuitBreakerState(endpoint string, state CircuitState) {
	if mc == nil {
		return
	}
	var value float64
	switch state {
	case StateClosed:
		value = 0
	case StateOpen:
		value = 1
	case StateHalfOpen:
		value = 2
	}
	mc.circuitBreakerState.WithLabelValues(endpoint).Set(value)
}

// RecordRateLimiterRejection increments the rejection counter for a key.
func (mc *MetricsCollector) RecordRateLimiterRejection(key string) {
	if mc == nil {
		return
	}
	mc.rateLimiterRejections.WithLabelValues(key).Inc()
}

// RecordProxyAcquisition increments the acquisition counter for a proxy.
func (mc *MetricsCollector) RecordProxyAcquisition(proxyID string) {
	if mc == nil {
		return
	}
	mc.proxyAcquisitions.WithLabelValues(proxyID).Inc()
}

// RecordProxyFailure increments the blame counter for a proxy.
func (mc *MetricsCollector) RecordProxyFailure(proxyID string) {
	if mc == nil {
		return
	}
	mc.proxyFailures.WithLabelValues(proxyID).Inc()
}

// RecordDeduplicationHit increments the coalesced-request counter.
func (mc *MetricsCollector) RecordDeduplicationHit(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.deduplicationHits.WithLabelValues(method, endpoint).Inc()
}

// RecordError increments the error counter by classification kind.
func (mc *MetricsCollector) RecordError(kind, method, endpoint string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(kind, method, endpoint).Inc()
}
