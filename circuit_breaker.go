package network

import (
	"sync/atomic"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int64

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds per-endpoint breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long an open circuit waits before admitting
	// a half-open probe. Evaluated lazily on the next admission check.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of half-open successes required to
	// close the circuit.
	SuccessThreshold int
}

// CircuitBreaker is one endpoint's failure-isolation state machine.
// All fields are mutated with atomics; safe for concurrent use.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       int64
	failures    int64
	successes   int64
	lastFailure int64
	probe       int64
}

// CircuitStats is a point-in-time snapshot of one breaker.
type CircuitStats struct {
	State       CircuitState
	Failures    int
	Successes   int
	LastFailure time.Time
	Config      CircuitBreakerConfig
}

// NewCircuitBreaker creates a breaker, filling zero config fields with
// defaults.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}

	return &CircuitBreaker{
		config: config,
		state:  int64(StateClosed),
	}
}

// Allow checks whether a request may proceed. An open breaker whose
// recovery timeout has elapsed transitions to half-open and admits the
// transitioning caller as the probe; half-open admits exactly one probe
// at a time.
func (cb *CircuitBreaker) Allow() bool {
	now := time.Now().UnixNano()

	switch CircuitState(atomic.LoadInt64(&cb.state)) {
	case StateClosed:
		return true
	case StateOpen:
		lastFailure := atomic.LoadInt64(&cb.lastFailure)
		if now-lastFailure >= int64(cb.config.RecoveryTimeout) {
			if atomic.CompareAndSwapInt64(&cb.state, int64(StateOpen), int64(StateHalfOpen)) {
				atomic.StoreInt64(&cb.successes, 0)
				atomic.StoreInt64(&cb.probe, 1)
				return true
			}
		}
		return false
	case StateHalfOpen:
		return atomic.CompareAndSwapInt64(&cb.probe, 0, 1)
	default:
		return false
	}
}

// RecordSuccess records a successful request. In the closed state it
// resets the consecutive-failure count; in half-open it advances toward
// closed; in open (reachable only via the proxy-rotation override, which
// bypasses admission) it moves the breaker into half-open accounting so
// healthy egress paths can close the circuit without waiting out the
// recovery timeout.
func (cb *CircuitBreaker) RecordSuccess() {
	state := CircuitState(atomic.LoadInt64(&cb.state))

	if state == StateOpen {
		if !atomic.CompareAndSwapInt64(&cb.state, int64(StateOpen), int64(StateHalfOpen)) {
			return
		}
		atomic.StoreInt64(&cb.successes, 0)
		state = StateHalfOpen
	}

	switch state {
	case StateClosed:
		atomic.StoreInt64(&cb.failures, 0)
	case StateHalfOpen:
		successes := atomic.AddInt64(&cb.successes, 1)
		if successes >= int64(cb.config.SuccessThreshold) {
			atomic.StoreInt64(&cb.state, int64(StateClosed))
			atomic.StoreInt64(&cb.failures, 0)
			atomic.StoreInt64(&cb.successes, 0)
		}
		atomic.StoreInt64(&cb.probe, 0)
	}
}

// RecordFailure records a failed request. Opens the circuit once
// consecutive failures reach the threshold; a half-open failure reopens
// immediately and restarts the recovery clock.
func (cb *CircuitBreaker) RecordFailure() {
	atomic.StoreInt64(&cb.lastFailure, time.Now().UnixNano())

	switch CircuitState(atomic.LoadInt64(&cb.state)) {
	case StateClosed:
		failures := atomic.AddInt64(&cb.failures, 1)
		if failures >= int64(cb.config.FailureThreshold) {
			atomic.StoreInt64(&cb.state, int64(StateOpen))
		}
	case StateOpen:
		// Already open, the clock update above is enough.
	case StateHalfOpen:
		atomic.AddInt64(&cb.failures, 1)
		atomic.StoreInt64(&cb.state, int64(StateOpen))
		atomic.StoreInt64(&cb.successes, 0)
		atomic.StoreInt64(&cb.probe, 0)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(atomic.LoadInt64(&cb.state))
}

// Stats returns a snapshot of the breaker. The snapshot is not atomic
// across fields but each field is individually consistent.
func (cb *CircuitBreaker) Stats() CircuitStats {
	lastFailure := atomic.LoadInt64(&cb.lastFailure)
	stats := CircuitStats{
		State:     CircuitState(atomic.LoadInt64(&cb.state)),
		Failures:  int(atomic.LoadInt64(&cb.failures)),
		Successes: int(atomic.LoadInt64(&cb.successes)),
		Config:    cb.config,
	}
	if lastFailure > 0 {
		stats.LastFailure = time.Unix(0, lastFailure)
	}
	return stats
}

// Reset returns the breaker to closed with zeroed counters.
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt64(&cb.state, int64(StateClosed))
	atomic.StoreInt64(&cb.failures, 0)
	atomic.StoreInt64(&cb.successes, 0)
	atomic.StoreInt64(&cb.lastFailure, 0)
	atomic.StoreInt64(&cb.probe, 0)
}
