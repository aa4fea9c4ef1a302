package backoff

import (
	"time"
)

// Calculator computes retry delays using a pluggable strategy. It keeps
// the delay math in one place so the retry loop never duplicates it.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a calculator with the given strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{strategy: strategy}
}

// Calculate computes the delay before the retry following the given
// zero-indexed attempt.
func (c *Calculator) Calculate(attempt int, baseDelay, maxDelay time.Duration, factor, jitter float64) time.Duration {
	return c.strategy.Calculate(attempt, baseDelay, maxDelay, factor, jitter)
}

// ExponentialJitterCalculator returns a calculator using the default
// exponential-jitter strategy.
func ExponentialJitterCalculator() *Calculator {
	return NewCalculator(ExponentialJitterStrategy{})
}

// DecorrelatedJitterCalculator returns a calculator using AWS-style
// decorrelated jitter.
func DecorrelatedJitterCalculator() *Calculator {
	return NewCalculator(DecorrelatedJitterStrategy{})
}
