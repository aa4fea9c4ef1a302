package network

import (
	"context"
	"testing"
	"time"
)

func testPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   maxAttempts,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrySuccessFirstAttempt(t *testing.T) {
	rc := newRetryCoordinator(testPolicy(3), nil)

	calls := 0
	resp, cls, attempts := rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		calls++
		return &Response{StatusCode: 200}, Classify(nil, 200)
	})

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
	if cls.Kind != KindSuccess {
		t.Errorf("Expected success, got %s", cls.Kind)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	rc := newRetryCoordinator(testPolicy(3), nil)

	calls := 0
	_, cls, attempts := rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		calls++
		if calls < 3 {
			return &Response{StatusCode: 500}, Classify(nil, 500)
		}
		return &Response{StatusCode: 200}, Classify(nil, 200)
	})

	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if cls.Kind != KindSuccess {
		t.Errorf("Expected eventual success, got %s", cls.Kind)
	}
}

func TestRetryExhaustion(t *testing.T) {
	rc := newRetryCoordinator(testPolicy(3), nil)

	calls := 0
	_, cls, attempts := rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		calls++
		return &Response{StatusCode: 500}, Classify(nil, 500)
	})

	if calls != 3 {
		t.Errorf("Expected exactly MaxAttempts calls, got %d", calls)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if cls.Kind != KindServerError {
		t.Errorf("Expected final server error, got %s", cls.Kind)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	rc := newRetryCoordinator(testPolicy(5), nil)

	calls := 0
	_, cls, _ := rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		calls++
		return &Response{StatusCode: 404}, Classify(nil, 404)
	})

	if calls != 1 {
		t.Errorf("Non-retryable classification must stop the loop, got %d calls", calls)
	}
	if cls.Kind != KindClientError {
		t.Errorf("Expected client error, got %s", cls.Kind)
	}
}

func TestRetryDelaySequence(t *testing.T) {
	rc := newRetryCoordinator(RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        0,
	}, nil)

	var times []time.Time
	rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		times = append(times, time.Now())
		return &Response{StatusCode: 500}, Classify(nil, 500)
	})

	if len(times) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(times))
	}

	// Expected delay sequence [0, 100, 200]ms, allowing scheduler noise.
	gap1 := times[1].Sub(times[0])
	gap2 := times[2].Sub(times[1])

	if gap1 < 90*time.Millisecond || gap1 > 180*time.Millisecond {
		t.Errorf("Expected ~100ms before attempt 2, got %v", gap1)
	}
	if gap2 < 180*time.Millisecond || gap2 > 320*time.Millisecond {
		t.Errorf("Expected ~200ms before attempt 3, got %v", gap2)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	rc := newRetryCoordinator(RetryPolicy{
		MaxAttempts:   5,
		BaseDelay:     time.Second,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	start := time.Now()
	_, cls, _ := rc.run(ctx, func(attempt int) (*Response, Classification) {
		calls++
		cancel()
		return nil, Classify(context.DeadlineExceeded, 0)
	})

	if calls != 1 {
		t.Errorf("Expected cancellation during backoff to stop the loop, got %d calls", calls)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Expected prompt return on cancellation")
	}
	if cls.Retryable {
		t.Error("Expected final classification to be marked non-retryable")
	}
}

func TestRetryStats(t *testing.T) {
	rc := newRetryCoordinator(testPolicy(3), nil)

	// One success without retries.
	rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		return &Response{StatusCode: 200}, Classify(nil, 200)
	})

	// One exhausted failure with two retries.
	rc.run(context.Background(), func(attempt int) (*Response, Classification) {
		return &Response{StatusCode: 500}, Classify(nil, 500)
	})

	stats := rc.Stats()
	if stats.TotalOperations != 2 {
		t.Errorf("Expected 2 operations, got %d", stats.TotalOperations)
	}
	if stats.SuccessfulOperations != 1 {
		t.Errorf("Expected 1 success, got %d", stats.SuccessfulOperations)
	}
	if stats.FailedOperations != 1 {
		t.Errorf("Expected 1 failure, got %d", stats.FailedOperations)
	}
	if stats.TotalRetries != 2 {
		t.Errorf("Expected 2 retries, got %d", stats.TotalRetries)
	}
	if stats.SuccessRate != 0.5 {
		t.Errorf("Expected success rate 0.5, got %g", stats.SuccessRate)
	}
}
