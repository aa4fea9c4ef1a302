package network

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/synthetism/network/internal/backoff"
)

// RetryPolicy bounds the retry loop around one logical request.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay seeds the backoff curve; the first attempt never waits.
	BaseDelay time.Duration
	// MaxDelay caps the backoff curve.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay per retry.
	BackoffFactor float64
	// Jitter randomizes the delay within [delay, delay*(1+Jitter)] to
	// avoid synchronized retries across callers. Zero disables it.
	Jitter float64
}

// DefaultRetryPolicy mirrors the client's construction defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.1,
	}
}

// RetryStats aggregates retry outcomes across all requests.
type RetryStats struct {
	TotalOperations      uint64
	SuccessfulOperations uint64
	FailedOperations     uint64
	TotalRetries         uint64
	SuccessRate          float64
}

// attemptFunc executes one attempt and returns its response (may be nil
// on transport error) together with its classification.
type attemptFunc func(attempt int) (*Response, Classification)

// retryCoordinator wraps one logical operation in a bounded, strictly
// sequential retry loop. Attempt delays come from the backoff
// calculator; retryability comes from the classifier and nowhere else.
type retryCoordinator struct {
	policy RetryPolicy
	calc   *backoff.Calculator

	totalOps     uint64
	successOps   uint64
	failedOps    uint64
	totalRetries uint64
}

func newRetryCoordinator(policy RetryPolicy, calc *backoff.Calculator) *retryCoordinator {
	if calc == nil {
		calc = backoff.ExponentialJitterCalculator()
	}
	return &retryCoordinator{policy: policy, calc: calc}
}

// run invokes op up to MaxAttempts times, sleeping the backoff delay
// between attempts. It stops early on success, on a non-retryable
// classification, or when ctx is done during an inter-retry delay.
func (rc *retryCoordinator) run(ctx context.Context, op attemptFunc) (*Response, Classification, int) {
	atomic.AddUint64(&rc.totalOps, 1)

	for attempt := 1; ; attempt++ {
		resp, cls := op(attempt)

		if cls.Kind == KindSuccess {
			atomic.AddUint64(&rc.successOps, 1)
			return resp, cls, attempt
		}

		if !cls.Retryable || attempt >= rc.policy.MaxAttempts {
			atomic.AddUint64(&rc.failedOps, 1)
			return resp, cls, attempt
		}

		atomic.AddUint64(&rc.totalRetries, 1)

		delay := rc.calc.Calculate(attempt-1, rc.policy.BaseDelay, rc.policy.MaxDelay, rc.policy.BackoffFactor, rc.policy.Jitter)
		if !sleepContext(ctx, delay) {
			atomic.AddUint64(&rc.failedOps, 1)
			if cls.Err == nil {
				cls.Err = ctx.Err()
			}
			cls.Retryable = false
			return resp, cls, attempt
		}
	}
}

// Stats returns a snapshot of retry accounting.
func (rc *retryCoordinator) Stats() RetryStats {
	stats := RetryStats{
		TotalOperations:      atomic.LoadUint64(&rc.totalOps),
		SuccessfulOperations: atomic.LoadUint64(&rc.successOps),
		FailedOperations:     atomic.LoadUint64(&rc.failedOps),
		TotalRetries:         atomic.LoadUint64(&rc.totalRetries),
	}
	if stats.TotalOperations > 0 {
		stats.SuccessRate = float64(stats.SuccessfulOperations) / float64(stats.TotalOperations)
	}
	return stats
}

// sleepContext sleeps for d unless ctx is done first. Returns false if
// the sleep was interrupted.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
