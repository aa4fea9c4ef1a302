package network

import (
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// TokenBucket is a lock-free token bucket. Tokens refill at a fixed
// interval up to the bucket's capacity.
type TokenBucket struct {
	tokens     int64
	maxTokens  int64
	refillRate time.Duration
	lastRefill int64
}

// NewTokenBucket creates a full bucket holding maxTokens, refilling one
// token every refillRate.
func NewTokenBucket(maxTokens int, refillRate time.Duration) *TokenBucket {
	return &TokenBucket{
		tokens:     int64(maxTokens),
		maxTokens:  int64(maxTokens),
		refillRate: refillRate,
		lastRefill: time.Now().UnixNano(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.refill()
	return tb.consume()
}

// Remaining returns the number of available tokens.
func (tb *TokenBucket) Remaining() int {
	tb.refill()
	tokens := atomic.LoadInt64(&tb.tokens)
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

// RetryAfter returns how long until the next token becomes available.
// Zero when a token is already available.
func (tb *TokenBucket) RetryAfter() time.Duration {
	tb.refill()
	if atomic.LoadInt64(&tb.tokens) > 0 {
		return 0
	}

	lastRefill := atomic.LoadInt64(&tb.lastRefill)
	wait := time.Duration(lastRefill + int64(tb.refillRate) - time.Now().UnixNano())
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

func (tb *TokenBucket) refill() {
	now := time.Now().UnixNano()

	for {
		currentTokens := atomic.LoadInt64(&tb.tokens)
		lastRefill := atomic.LoadInt64(&tb.lastRefill)

		elapsed := now - lastRefill
		tokensToAdd := int64(0)
		if tb.refillRate > 0 {
			tokensToAdd = elapsed / int64(tb.refillRate)
		}
		if tokensToAdd == 0 {
			return
		}

		newTokens := currentTokens + tokensToAdd
		if newTokens > tb.maxTokens {
			newTokens = tb.maxTokens
		}

		newLastRefill := lastRefill + tokensToAdd*int64(tb.refillRate)

		if !atomic.CompareAndSwapInt64(&tb.lastRefill, lastRefill, newLastRefill) {
			continue
		}

		atomic.StoreInt64(&tb.tokens, newTokens)
		return
	}
}

func (tb *TokenBucket) consume() bool {
	for {
		currentTokens := atomic.LoadInt64(&tb.tokens)
		if currentTokens <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&tb.tokens, currentTokens, currentTokens-1) {
			return true
		}
	}
}

// HostRateLimiter is the bundled RateLimiter: one token bucket per
// admission key, created lazily, all sharing the same capacity and
// refill rate. With the default key derivation every path on a host
// draws from that host's budget.
type HostRateLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	maxTokens  int
	refillRate time.Duration

	allowed  uint64
	rejected uint64
}

// NewHostRateLimiter creates a limiter granting maxTokens per key,
// refilling one token every refillRate.
func NewHostRateLimiter(maxTokens int, refillRate time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		buckets:    make(map[string]*TokenBucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
	}
}

func (rl *HostRateLimiter) bucket(key string) *TokenBucket {
	rl.mu.RLock()
	bucket, ok := rl.buckets[key]
	rl.mu.RUnlock()
	if ok {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, ok = rl.buckets[key]; ok {
		return bucket
	}
	bucket = NewTokenBucket(rl.maxTokens, rl.refillRate)
	rl.buckets[key] = bucket
	return bucket
}

// Check implements the RateLimiter interface.
func (rl *HostRateLimiter) Check(ctx AdmissionContext) Admission {
	bucket := rl.bucket(ctx.Key)

	if bucket.Allow() {
		atomic.AddUint64(&rl.allowed, 1)
		return Admission{Allowed: true, Remaining: bucket.Remaining()}
	}

	atomic.AddUint64(&rl.rejected, 1)
	return Admission{RetryAfter: bucket.RetryAfter()}
}

// Stats implements the RateLimiter interface.
func (rl *HostRateLimiter) Stats() RateLimitStats {
	rl.mu.RLock()
	buckets := len(rl.buckets)
	rl.mu.RUnlock()

	return RateLimitStats{
		Allowed:  atomic.LoadUint64(&rl.allowed),
		Rejected: atomic.LoadUint64(&rl.rejected),
		Buckets:  buckets,
	}
}

// hostAdmissionKey derives the rate-limit key from a request URL.
func hostAdmissionKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "host:unknown"
	}
	return "host:" + u.Hostname()
}
