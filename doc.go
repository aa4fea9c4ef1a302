// Package network provides a resilient HTTP request orchestrator:
// given a URL and request options, it produces a response while
// automatically applying per-endpoint failure isolation, bounded retry
// with backoff, optional request throttling and optional proxy rotation
// on classified network failures.
//
// Reliability layers, composed inside a single Request call:
//
//   - Per-endpoint circuit breakers (closed / open / half-open), created
//     lazily and keyed by a configurable strategy
//   - Bounded retries with exponential backoff + jitter, driven by a
//     shared failure classifier
//   - Optional per-host token-bucket rate limiting checked before any
//     attempt is made
//   - Optional proxy rotation: a fresh proxy per attempt, with failed
//     proxies reported back to the pool only when the failure actually
//     blames the egress path
//   - Request de-duplication (merges concurrent identical in-flight requests)
//   - Middleware chain for cross-cutting concerns (auth, tracing, etc.)
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area - functional options configure everything
//   - Capability-shaped collaborators (transport, proxy pool, rate
//     limiter) behind narrow interfaces, injectable for testing
//   - Safe concurrent use of a single *Client instance
//
// Typical usage:
//
//	client := network.New(
//	    network.WithMaxAttempts(3),
//	    network.WithRateLimiter(10, time.Second),
//	    network.WithCircuitBreaker(network.CircuitBreakerConfig{FailureThreshold: 5}),
//	    network.WithProxies(&network.ProxyConnection{Host: "10.0.0.1", Port: 8080, Protocol: "http"}),
//	)
//	result, err := client.Get(ctx, "https://api.example.com/data")
//
// Failures surface as a single typed *RequestError matching one of the
// sentinels ErrRateLimited, ErrCircuitOpen or ErrRetriesExhausted via
// errors.Is; individual attempt failures are absorbed by the retry loop.
// Retried requests may be delivered more than once to a non-idempotent
// endpoint - callers needing exactly-once must enforce it themselves.
package network
