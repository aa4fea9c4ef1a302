package network

import (
	"net/http"
	"time"

	"github.com/synthetism/network/internal/backoff"
	"github.com/synthetism/network/internal/singleflight"
)

// WithRetryPolicy sets the full retry policy in one call.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithMaxAttempts sets the total number of tries per request, including
// the first.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.retryPolicy.MaxAttempts = n
	}
}

// WithBaseDelay sets the initial backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryPolicy.BaseDelay = d
	}
}

// WithMaxDelay sets the backoff cap.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryPolicy.MaxDelay = d
	}
}

// WithBackoffFactor sets the per-retry delay multiplier.
func WithBackoffFactor(f float64) Option {
	return func(c *Client) {
		c.retryPolicy.BackoffFactor = f
	}
}

// WithJitter sets the jitter factor for backoff (0.0 to 1.0).
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.retryPolicy.Jitter = f
	}
}

// WithBackoffStrategy selects the backoff algorithm.
func WithBackoffStrategy(strategy backoff.Strategy) Option {
	return func(c *Client) {
		c.backoffCalc = backoff.NewCalculator(strategy)
	}
}

// WithCircuitBreaker sets the per-endpoint circuit breaker
// configuration.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breakerConfig = config
	}
}

// WithEndpointKeyFunc sets the circuit keying strategy. The default
// keys by raw request URL.
func WithEndpointKeyFunc(fn EndpointKeyFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.keyFunc = fn
		}
	}
}

// WithRateLimiter enables the bundled per-host token bucket limiter.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewHostRateLimiter(maxTokens, refillRate)
	}
}

// WithRateLimitGate sets a custom admission gate.
func WithRateLimitGate(limiter RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = limiter
	}
}

// WithProxyPool sets the proxy pool collaborator. Each attempt acquires
// a fresh connection; connections blamed for classified network or
// proxy failures are reported back before the next attempt.
func WithProxyPool(pool ProxyPool) Option {
	return func(c *Client) {
		c.proxies = &proxyRotation{pool: pool}
	}
}

// WithProxies enables proxy rotation over a bundled round-robin pool of
// the given connections.
func WithProxies(conns ...*ProxyConnection) Option {
	return func(c *Client) {
		c.proxies = &proxyRotation{pool: NewStaticProxyPool(conns...)}
	}
}

// WithTransport sets a custom transport collaborator.
func WithTransport(transport Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithHTTPClient sets the *http.Client backing the default transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMiddleware adds middleware around the transport call.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithDeduplication coalesces concurrent identical idempotent requests
// into a single transport execution.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = singleflight.New()
	}
}

// WithDeduplicationKeyFunc sets a custom deduplication key function.
func WithDeduplicationKeyFunc(fn DeduplicationKeyFunc) Option {
	return func(c *Client) {
		c.dedupKeyFunc = fn
	}
}

// WithDeduplicationCondition sets a custom deduplication eligibility
// condition.
func WithDeduplicationCondition(fn DeduplicationCondition) Option {
	return func(c *Client) {
		c.dedupCondition = fn
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom request ID generator.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}
