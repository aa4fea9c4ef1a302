package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/synthetism/network/internal/backoff"
	"github.com/synthetism/network/internal/singleflight"
)

// Client is a resilient HTTP request orchestrator. A single Request
// call sequences rate-limit admission, per-endpoint circuit-breaker
// admission, bounded retry with backoff, proxy acquisition and
// rotation, failure classification and outcome recording. It is safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	transport  Transport
	middleware []Middleware
	timeout    time.Duration

	retryPolicy RetryPolicy
	retry       *retryCoordinator
	backoffCalc *backoff.Calculator

	breakerConfig CircuitBreakerConfig
	breakers      *CircuitBreakerRegistry
	keyFunc       EndpointKeyFunc

	rateLimiter RateLimiter
	proxies     *proxyRotation

	dedup          *singleflight.Group
	dedupKeyFunc   DeduplicationKeyFunc
	dedupCondition DeduplicationCondition

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for
// errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:     &http.Client{},
		timeout:        30 * time.Second,
		retryPolicy:    DefaultRetryPolicy(),
		keyFunc:        DefaultEndpointKeyFunc,
		proxies:        &proxyRotation{},
		dedupKeyFunc:   DefaultDeduplicationKeyFunc,
		dedupCondition: DefaultDeduplicationCondition,
		debug:          DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.transport == nil {
		client.transport = newHTTPTransport(client.httpClient)
	}
	client.transport = chainMiddleware(client.transport, client.middleware)

	if client.backoffCalc == nil {
		client.backoffCalc = backoff.ExponentialJitterCalculator()
	}
	client.retry = newRetryCoordinator(client.retryPolicy, client.backoffCalc)
	client.breakers = NewCircuitBreakerRegistry(client.breakerConfig)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*RequestResult, error) {
	return c.Request(ctx, url, nil)
}

// Post performs a POST request. See RequestOptions.Body for accepted
// body types.
func (c *Client) Post(ctx context.Context, url string, body any) (*RequestResult, error) {
	return c.Request(ctx, url, &RequestOptions{Method: http.MethodPost, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, url string, body any) (*RequestResult, error) {
	return c.Request(ctx, url, &RequestOptions{Method: http.MethodPut, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*RequestResult, error) {
	return c.Request(ctx, url, &RequestOptions{Method: http.MethodDelete})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, url string, body any) (*RequestResult, error) {
	return c.Request(ctx, url, &RequestOptions{Method: http.MethodPatch, Body: body})
}

// Request executes one orchestrated request: rate-limit admission,
// circuit admission (with the proxy-rotation override for open
// circuits), retries with backoff, per-attempt proxy rotation, and
// final outcome recording. It returns a RequestResult or a single typed
// *RequestError; individual attempt failures are never surfaced.
func (c *Client) Request(ctx context.Context, url string, opts *RequestOptions) (*RequestResult, error) {
	start := time.Now()
	options := c.normalizeOptions(opts)
	endpoint := c.keyFunc(url)
	requestID := c.newRequestID()

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", options.Method, "url", url, "endpoint", endpoint)
	}

	body, contentType, err := serializeBody(options.Body)
	if err != nil {
		return nil, fmt.Errorf("network: serialize request body: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(options.Method, endpoint)
	}
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordRequestEnd(options.Method, endpoint)
		}
	}()

	if c.dedup != nil && c.dedupCondition(options.Method) {
		key := c.dedupKeyFunc(options.Method, url, body)
		val, err, shared := c.dedup.Do(ctx, key, func() (any, error) {
			return c.execute(ctx, url, endpoint, options, body, contentType, requestID, start)
		})
		if shared {
			if c.metrics != nil {
				c.metrics.RecordDeduplicationHit(options.Method, endpoint)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
				c.logger.Debug("Deduplication hit", "requestID", requestID, "dedupKey", key)
			}
		}
		result, _ := val.(*RequestResult)
		return result, err
	}

	return c.execute(ctx, url, endpoint, options, body, contentType, requestID, start)
}

func (c *Client) execute(ctx context.Context, url, endpoint string, options RequestOptions, body []byte, contentType, requestID string, start time.Time) (*RequestResult, error) {
	method := options.Method

	// Pre-flight admission: a denied request makes no attempt and
	// changes no circuit or proxy state.
	if c.rateLimiter != nil {
		admissionKey := hostAdmissionKey(url)
		admission := c.rateLimiter.Check(AdmissionContext{Key: admissionKey})
		if !admission.Allowed {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
				c.logger.Warn("Rate limit exceeded", "requestID", requestID, "key", admissionKey, "retryAfter", admission.RetryAfter)
			}
			if c.metrics != nil {
				c.metrics.RecordRateLimiterRejection(admissionKey)
				c.metrics.RecordError(ErrorTypeRateLimit, method, endpoint)
			}
			return nil, &RequestError{
				Type:       ErrorTypeRateLimit,
				Message:    "rate limit exceeded",
				RequestID:  requestID,
				Method:     method,
				URL:        url,
				Endpoint:   endpoint,
				RetryAfter: admission.RetryAfter,
				Timestamp:  time.Now(),
				Duration:   time.Since(start),
			}
		}
	}

	// Circuit admission. An open circuit fails fast unless a proxy pool
	// is configured: rotating egress paths is cheaper than waiting out
	// the recovery timeout, and a success on another path closes the
	// circuit through the normal recording path.
	if !c.breakers.Admit(endpoint) {
		if !c.proxies.configured() {
			if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
				c.logger.Warn("Circuit breaker open", "requestID", requestID, "endpoint", endpoint)
			}
			if c.metrics != nil {
				c.metrics.RecordError(ErrorTypeCircuitOpen, method, endpoint)
			}
			return nil, &RequestError{
				Type:      ErrorTypeCircuitOpen,
				Message:   "circuit breaker is open",
				RequestID: requestID,
				Method:    method,
				URL:       url,
				Endpoint:  endpoint,
				Timestamp: time.Now(),
				Duration:  time.Since(start),
			}
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
			c.logger.Info("Circuit open, probing via proxy rotation", "requestID", requestID, "endpoint", endpoint)
		}
	}

	headers := make(map[string]string, len(options.Headers)+1)
	for key, value := range options.Headers {
		headers[key] = value
	}
	if contentType != "" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = contentType
		}
	}

	resp, cls, attempts := c.retry.run(ctx, func(attempt int) (*Response, Classification) {
		if attempt > 1 {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxAttempts", c.retryPolicy.MaxAttempts, "endpoint", endpoint)
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(method, endpoint, attempt)
			}
		}

		conn := c.proxies.acquire()
		if conn != nil {
			if c.metrics != nil {
				c.metrics.RecordProxyAcquisition(conn.ID)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogProxy && c.logger != nil {
				c.logger.Debug("Proxy acquired", "requestID", requestID, "proxy", conn.ID, "attempt", attempt)
			}
		}

		attemptResp, err := c.transport.Do(ctx, &RequestContext{
			URL:     url,
			Method:  method,
			Headers: headers,
			Body:    body,
			Timeout: options.Timeout,
			Proxy:   proxyURL(conn),
		})

		statusCode := 0
		if attemptResp != nil {
			statusCode = attemptResp.StatusCode
		}
		cls := Classify(err, statusCode)

		if cls.BlamesProxy && conn != nil {
			c.proxies.reportFailure(conn)
			if c.metrics != nil {
				c.metrics.RecordProxyFailure(conn.ID)
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogProxy && c.logger != nil {
				c.logger.Warn("Proxy blamed for failure", "requestID", requestID, "proxy", conn.ID, "kind", cls.Kind)
			}
		}

		return attemptResp, cls
	})

	duration := time.Since(start)

	if cls.Kind == KindSuccess {
		c.breakers.RecordSuccess(endpoint)
		if c.metrics != nil {
			c.metrics.RecordCircuitBreakerState(endpoint, c.breakers.StatsFor(endpoint).State)
			c.metrics.RecordRequest(method, endpoint, resp.StatusCode, duration)
		}
		return &RequestResult{
			Response:   resp,
			ParsedBody: parseBody(resp),
			RequestID:  requestID,
			Timestamp:  time.Now(),
		}, nil
	}

	c.breakers.RecordFailure(endpoint)
	if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
		c.logger.Warn("Circuit breaker failure recorded", "requestID", requestID, "endpoint", endpoint, "kind", cls.Kind)
	}
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(endpoint, c.breakers.StatsFor(endpoint).State)
		c.metrics.RecordError(string(cls.Kind), method, endpoint)
		c.metrics.RecordRequest(method, endpoint, cls.StatusCode, duration)
	}

	cause := cls.Err
	if cause == nil && cls.StatusCode != 0 {
		cause = fmt.Errorf("unexpected status %d", cls.StatusCode)
	}

	return nil, &RequestError{
		Type:           ErrorTypeRetriesExhausted,
		Message:        fmt.Sprintf("request failed after %d attempt(s): %s", attempts, cls.Kind),
		Cause:          cause,
		Classification: cls,
		RequestID:      requestID,
		Method:         method,
		URL:            url,
		Endpoint:       endpoint,
		StatusCode:     cls.StatusCode,
		Attempts:       attempts,
		MaxAttempts:    c.retryPolicy.MaxAttempts,
		Timestamp:      time.Now(),
		Duration:       duration,
	}
}

// GetCircuitStats returns snapshots for every tracked circuit.
func (c *Client) GetCircuitStats() map[string]CircuitStats {
	return c.breakers.Stats()
}

// ResetCircuits returns every tracked circuit to closed with zeroed
// counters.
func (c *Client) ResetCircuits() {
	c.breakers.ResetAll()
}

// IsValid reports whether configuration validation passed at
// construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// ValidateConfiguration re-checks the client's configuration.
func (c *Client) ValidateConfiguration() error {
	p := c.retryPolicy
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: MaxAttempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("retry: BaseDelay must not be negative, got %v", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry: MaxDelay %v is below BaseDelay %v", p.MaxDelay, p.BaseDelay)
	}
	if p.BackoffFactor < 1 {
		return fmt.Errorf("retry: BackoffFactor must be at least 1, got %g", p.BackoffFactor)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("retry: Jitter must be within [0, 1], got %g", p.Jitter)
	}
	if c.breakerConfig.FailureThreshold < 0 {
		return fmt.Errorf("circuit breaker: FailureThreshold must not be negative, got %d", c.breakerConfig.FailureThreshold)
	}
	if c.breakerConfig.SuccessThreshold < 0 {
		return fmt.Errorf("circuit breaker: SuccessThreshold must not be negative, got %d", c.breakerConfig.SuccessThreshold)
	}
	if c.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.timeout)
	}
	return nil
}

func (c *Client) normalizeOptions(opts *RequestOptions) RequestOptions {
	var options RequestOptions
	if opts != nil {
		options = *opts
	}
	if options.Method == "" {
		options.Method = http.MethodGet
	}
	if options.Timeout <= 0 {
		options.Timeout = c.timeout
	}
	return options
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return uuid.NewString()
}

func serializeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), "", nil
	case []byte:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

// parseBody decodes JSON responses best effort; anything else is left
// to the caller.
func parseBody(resp *Response) any {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if !strings.Contains(resp.Headers.Get("Content-Type"), "application/json") {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil
	}
	return parsed
}
