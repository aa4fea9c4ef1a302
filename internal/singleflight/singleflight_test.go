package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoCoalescesConcurrentCalls(t *testing.T) {
	g := New()

	var executions int32
	var wg sync.WaitGroup
	results := make([]any, 10)
	shared := make([]bool, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			val, err, s := g.Do(context.Background(), "key", func() (any, error) {
				atomic.AddInt32(&executions, 1)
				time.Sleep(20 * time.Millisecond)
				return "result", nil
			})
			if err != nil {
				t.Errorf("Do() returned error: %v", err)
			}
			results[i] = val
			shared[i] = s
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&executions); got != 1 {
		t.Errorf("Expected 1 execution, got %d", got)
	}
	sharedCount := 0
	for i := 0; i < 10; i++ {
		if results[i] != "result" {
			t.Errorf("Caller %d got %v, want 'result'", i, results[i])
		}
		if shared[i] {
			sharedCount++
		}
	}
	if sharedCount != 9 {
		t.Errorf("Expected 9 shared results, got %d", sharedCount)
	}
}

func TestDoPropagatesError(t *testing.T) {
	g := New()
	boom := errors.New("boom")

	_, err, _ := g.Do(context.Background(), "key", func() (any, error) {
		return nil, boom
	})

	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestDoSequentialCallsExecuteFresh(t *testing.T) {
	g := New()

	var executions int32
	fn := func() (any, error) {
		return atomic.AddInt32(&executions, 1), nil
	}

	first, _, _ := g.Do(context.Background(), "key", fn)
	second, _, _ := g.Do(context.Background(), "key", fn)

	if first == second {
		t.Error("Expected sequential calls to execute independently")
	}
	if got := atomic.LoadInt32(&executions); got != 2 {
		t.Errorf("Expected 2 executions, got %d", got)
	}
}

func TestDoCanceledWaiter(t *testing.T) {
	g := New()

	release := make(chan struct{})
	go func() {
		g.Do(context.Background(), "key", func() (any, error) {
			<-release
			return "late", nil
		})
	}()

	// Wait until the owner is in flight.
	for g.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err, shared := g.Do(ctx, "key", func() (any, error) {
		t.Error("Waiter must not execute")
		return nil, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if !shared {
		t.Error("Expected waiter to report shared")
	}

	close(release)
}

func TestInFlight(t *testing.T) {
	g := New()

	if g.InFlight() != 0 {
		t.Errorf("Expected empty group, got %d", g.InFlight())
	}

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		g.Do(context.Background(), "key", func() (any, error) {
			<-release
			return nil, nil
		})
		close(done)
	}()

	for g.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(release)
	<-done

	if g.InFlight() != 0 {
		t.Errorf("Expected drained group, got %d", g.InFlight())
	}
}
