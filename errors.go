package network

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the three ways a request can fail without a
// caller-visible response. Match with errors.Is.
var (
	// ErrRateLimited is returned when admission is denied before any
	// attempt is made.
	ErrRateLimited = errors.New("network: rate limit exceeded")

	// ErrCircuitOpen is returned when an endpoint is isolated and no
	// proxy is available to probe an alternate egress path.
	ErrCircuitOpen = errors.New("network: circuit open")

	// ErrRetriesExhausted is returned once the retry budget is spent or
	// a non-retryable classification short-circuits the loop.
	ErrRetriesExhausted = errors.New("network: retries exhausted")

	// ErrNoProxyAvailable is returned by a pool whose every connection
	// is unavailable.
	ErrNoProxyAvailable = errors.New("network: no proxy available")
)

// Error type tags carried by RequestError.
const (
	ErrorTypeRateLimit        = "RateLimitExceeded"
	ErrorTypeCircuitOpen      = "CircuitOpen"
	ErrorTypeRetriesExhausted = "RetriesExhausted"
)

// RequestError is the single typed error surfaced by Request. It carries
// the endpoint, the final classification and enough attempt context to
// diagnose a failure without inspecting client internals.
type RequestError struct {
	Type           string
	Message        string
	Cause          error
	Classification Classification
	RequestID      string
	Method         string
	URL            string
	Endpoint       string
	StatusCode     int
	Attempts       int
	MaxAttempts    int
	RetryAfter     time.Duration
	Timestamp      time.Time
	Duration       time.Duration
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempts, e.MaxAttempts)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinel errors by type tag and other RequestErrors by Type.
func (e *RequestError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrRateLimited:
		return e.Type == ErrorTypeRateLimit
	case ErrCircuitOpen:
		return e.Type == ErrorTypeCircuitOpen
	case ErrRetriesExhausted:
		return e.Type == ErrorTypeRetriesExhausted
	}
	if targetErr, ok := target.(*RequestError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient reports whether an error represents a failure that might
// succeed on retry: connection errors, proxy auth failures, 5xx and 429
// classifications, plus rate-limit and open-circuit admissions (both
// clear with time).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Classification.Retryable
	}

	return false
}
