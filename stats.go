package network

// NetworkStats merges circuit, retry, rate-limit and proxy statistics
// into one snapshot. It is recomputed on every call and never cached;
// the view is not atomic across components but each component's own
// numbers are consistent.
type NetworkStats struct {
	CircuitCount int
	Circuits     map[string]CircuitStats
	Retry        RetryStats

	RateLimiterPresent bool
	RateLimiter        *RateLimitStats

	ProxyPresent bool
	Proxy        *ProxyPoolStats
}

// GetStats assembles a point-in-time snapshot of every reliability
// layer. Read-only; safe to call concurrently with in-flight requests.
func (c *Client) GetStats() NetworkStats {
	stats := NetworkStats{
		CircuitCount: c.breakers.Count(),
		Circuits:     c.breakers.Stats(),
		Retry:        c.retry.Stats(),
	}

	if c.rateLimiter != nil {
		stats.RateLimiterPresent = true
		rl := c.rateLimiter.Stats()
		stats.RateLimiter = &rl
	}

	if c.proxies.configured() {
		stats.ProxyPresent = true
		ps := c.proxies.stats()
		stats.Proxy = &ps
	}

	return stats
}
