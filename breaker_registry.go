package network

import (
	"sync"
	"sync/atomic"
)

// CircuitBreakerRegistry owns one breaker per endpoint key. Breakers are
// created lazily on first use and never removed; explicit reset is the
// only way back to a clean slate. Per-key state is updated atomically
// inside each breaker, so unrelated endpoints never contend on a lock.
type CircuitBreakerRegistry struct {
	breakers sync.Map // string -> *CircuitBreaker
	config   CircuitBreakerConfig
	count    int64
}

// NewCircuitBreakerRegistry creates a registry whose breakers all share
// the given configuration.
func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{config: config}
}

func (r *CircuitBreakerRegistry) get(key string) *CircuitBreaker {
	if cb, ok := r.breakers.Load(key); ok {
		return cb.(*CircuitBreaker)
	}

	cb, loaded := r.breakers.LoadOrStore(key, NewCircuitBreaker(r.config))
	if !loaded {
		atomic.AddInt64(&r.count, 1)
	}
	return cb.(*CircuitBreaker)
}

// Admit reports whether a request to the keyed endpoint may proceed.
func (r *CircuitBreakerRegistry) Admit(key string) bool {
	return r.get(key).Allow()
}

// RecordSuccess records a successful request against the keyed breaker.
func (r *CircuitBreakerRegistry) RecordSuccess(key string) {
	r.get(key).RecordSuccess()
}

// RecordFailure records a failed request against the keyed breaker.
func (r *CircuitBreakerRegistry) RecordFailure(key string) {
	r.get(key).RecordFailure()
}

// StatsFor returns a snapshot of the keyed breaker, creating it if it
// does not exist yet.
func (r *CircuitBreakerRegistry) StatsFor(key string) CircuitStats {
	return r.get(key).Stats()
}

// Stats returns snapshots for every tracked breaker.
func (r *CircuitBreakerRegistry) Stats() map[string]CircuitStats {
	stats := make(map[string]CircuitStats)
	r.breakers.Range(func(key, value any) bool {
		stats[key.(string)] = value.(*CircuitBreaker).Stats()
		return true
	})
	return stats
}

// Count returns the number of tracked breakers.
func (r *CircuitBreakerRegistry) Count() int {
	return int(atomic.LoadInt64(&r.count))
}

// ResetAll returns every tracked breaker to closed with zeroed counters.
func (r *CircuitBreakerRegistry) ResetAll() {
	r.breakers.Range(func(_, value any) bool {
		value.(*CircuitBreaker).Reset()
		return true
	})
}
