// Package singleflight coalesces concurrent calls that share a key into
// a single execution whose result every caller receives.
package singleflight

import (
	"context"
	"sync"
)

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Group manages a set of in-flight calls keyed by string.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

// New creates an empty Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do executes fn, making sure only one execution per key is in flight
// at a time. Duplicate callers wait for the owner's result; shared
// reports whether the returned value came from another caller's
// execution. A canceled context releases only the waiting caller, never
// the owner.
func (g *Group) Do(ctx context.Context, key string, fn func() (any, error)) (val any, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err, true
		case <-ctx.Done():
			return nil, ctx.Err(), true
		}
	}

	c := &call{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	// Remove before release so calls arriving after completion execute
	// fresh instead of observing a stale result.
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err, false
}

// InFlight reports the number of keys currently executing.
func (g *Group) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
