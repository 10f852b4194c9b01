// Per-identity token-bucket rate limiting.
//
// Buckets live in process memory and are keyed by the verified token subject
// when the auth gate ran first, or by client IP otherwise. Idle buckets are
// swept every sweepEvery lookups. Replays flagged by IdempotencyValidator
// skip the limiter entirely.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL = 10 * time.Minute
	sweepEvery     = 5000
)

// keyFunc maps a request to its bucket.
type keyFunc func(*gin.Context) string

// KeyBySubjectOrIP keys buckets by "sub:<subject>" when an identity is
// attached and by "ip:<addr>" otherwise.
func KeyBySubjectOrIP() keyFunc {
	return func(c *gin.Context) string {
		if sub := UserID(c); sub != "" {
			return "sub:" + sub
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per key. Safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn keyFunc
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	lookups uint64
}

// RateLimiterOption customizes a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithIdleTTL evicts buckets unused for d. d <= 0 is ignored.
func WithIdleTTL(d time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		if d > 0 {
			rl.idleTTL = d
		}
	}
}

// WithRateClock replaces time.Now; tests use it to step time.
func WithRateClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter refills rps tokens per second up to burst (min 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc, opts ...RateLimiterOption) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		idleTTL: defaultIdleTTL,
	}
	for _, o := range opts {
		o(rl)
	}
	return rl
}

// bucketFor returns the limiter for key. The sweep runs before the lookup so
// an expired bucket is replaced rather than refreshed.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Denied requests get 429 rate_limited with a
// Retry-After rounded up to whole seconds; the header is omitted when the
// bucket never refills (rps 0).
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		lim := rl.bucketFor(rl.keyFn(c), now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		rateLimited.WithLabelValues(metricPath(c)).Inc()

		if secs, ok := retryAfter(lim, now); ok {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
		AbortWithError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	}
}

// retryAfter probes when the next token is due without consuming it.
func retryAfter(lim *rate.Limiter, now time.Time) (int, bool) {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 0, false
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	if d == rate.InfDuration {
		return 0, false
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs, true
}
