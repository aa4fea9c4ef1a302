package network

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// RequestOptions configures a single Request call. The zero value means
// GET with no headers, no body and the client's default timeout.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	// Body may be a string, []byte, or any JSON-serializable value.
	// Non-string values are encoded as JSON and the Content-Type header
	// is set to application/json unless already present.
	Body    any
	Timeout time.Duration
}

// RequestContext is the fully resolved shape of one attempt. A fresh
// context is built per attempt because the assigned proxy may differ
// between attempts.
type RequestContext struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
	Proxy   *url.URL
}

// Response is the transport-level outcome of a completed attempt.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// RequestResult is returned to the caller on success. The orchestrator
// does not retain it beyond the call.
type RequestResult struct {
	Response   *Response
	ParsedBody any
	RequestID  string
	Timestamp  time.Time
}

// Transport performs the actual network call for one attempt.
type Transport interface {
	Do(ctx context.Context, req *RequestContext) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *RequestContext) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req *RequestContext) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps the transport call for cross-cutting concerns
// (auth headers, tracing, request mutation).
type Middleware func(ctx context.Context, req *RequestContext, next Transport) (*Response, error)

// ProxyConnection describes one egress proxy. The pool owns the
// connection; the orchestrator holds a transient reference per attempt
// and reports success or failure back to the pool.
type ProxyConnection struct {
	ID       string
	Host     string
	Port     int
	Username string
	Password string
	Protocol string
	Country  string
}

// ProxyPoolStats is a point-in-time view of a proxy pool.
type ProxyPoolStats struct {
	Total            int
	Acquired         uint64
	FailuresReported uint64
	FailureCounts    map[string]int
}

// ProxyPool supplies egress proxies and accepts failure reports. The
// pool's selection algorithm and its concurrency safety are its own
// responsibility.
type ProxyPool interface {
	Acquire() (*ProxyConnection, error)
	ReportFailure(conn *ProxyConnection)
	Stats() ProxyPoolStats
}

// AdmissionContext identifies the budget a request draws from. The key
// is derived from the target hostname so distinct paths on one host
// share a budget by default.
type AdmissionContext struct {
	Key      string
	Metadata map[string]string
}

// Admission is the rate limiter's decision for one request.
type Admission struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitStats is a point-in-time view of a rate limiter.
type RateLimitStats struct {
	Allowed  uint64
	Rejected uint64
	Buckets  int
}

// RateLimiter is the pre-flight admission gate. When no limiter is
// configured every request is admitted unconditionally.
type RateLimiter interface {
	Check(ctx AdmissionContext) Admission
	Stats() RateLimitStats
}

// EndpointKeyFunc derives the circuit scope key for a request URL.
type EndpointKeyFunc func(rawURL string) string

// DefaultEndpointKeyFunc keys circuits by the raw request URL, giving
// the finest-grained isolation: two query strings against the same
// path get independent circuits.
func DefaultEndpointKeyFunc(rawURL string) string {
	return rawURL
}

// HostEndpointKeyFunc keys circuits by hostname, pooling every path on
// a host into one circuit.
func HostEndpointKeyFunc(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// Option configures a Client at construction time.
type Option func(*Client)
