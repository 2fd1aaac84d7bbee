// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the request-rate limiter of the HTTP edge. Every
// caller (or client IP when anonymous) owns two token buckets: one for reads
// and a tighter one for writes such as vote submissions, product
// registration and admin calls. It is unrelated to the per-identity daily
// vote cap, which the service layer enforces in the database.
//
// Only served vote replays skip it (see IdempotencyValidator). The limiter
// is process-local.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Bucket classes.
const (
	classRead  = "read"
	classWrite = "write"
)

const (
	defaultIdleTTL = 10 * time.Minute
	// sweepEvery is the number of lookups between idle-bucket sweeps.
	sweepEvery = 5000
	// maxRetryAfter caps the Retry-After hint in seconds.
	maxRetryAfter = 3600
)

// KeyByUserOrIP returns a key function that prefers the caller identity
// attached by Authenticate and falls back to the client IP address.
func KeyByUserOrIP() func(*gin.Context) string {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	// RPS and Burst size the read bucket. Burst <= 0 is coerced to 1.
	RPS   float64
	Burst int
	// WriteRPS and WriteBurst size the bucket shared by non-safe methods.
	// WriteRPS <= 0 sends writes through the read bucket.
	WriteRPS   float64
	WriteBurst int
	// Key maps a request to a bucket owner. Nil uses KeyByUserOrIP.
	Key func(*gin.Context) string
	// Clock drives token refill and idle eviction. Nil uses the real clock.
	Clock clockwork.Clock
	// IdleTTL evicts buckets unused for this long. Defaults to 10 minutes.
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps per-owner token buckets. It is safe for concurrent use.
type RateLimiter struct {
	opts RateLimitOptions

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter constructs a RateLimiter. Install it with Handler().
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.WriteBurst <= 0 {
		opts.WriteBurst = opts.Burst
	}
	if opts.Key == nil {
		opts.Key = KeyByUserOrIP()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	return &RateLimiter{opts: opts, buckets: make(map[string]*bucket)}
}

// classOf picks the bucket class for a request.
func (rl *RateLimiter) classOf(c *gin.Context) string {
	if rl.opts.WriteRPS <= 0 {
		return classRead
	}
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return classRead
	}
	return classWrite
}

// limiterFor returns the bucket for (class, owner), creating it on first use.
// Idle buckets are swept before the lookup so a stale entry is recreated
// rather than refreshed.
func (rl *RateLimiter) limiterFor(class, owner string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.opts.IdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	key := class + "|" + owner
	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	var lim *rate.Limiter
	if class == classWrite {
		lim = rate.NewLimiter(rate.Limit(rl.opts.WriteRPS), rl.opts.WriteBurst)
	} else {
		lim = rate.NewLimiter(rate.Limit(rl.opts.RPS), rl.opts.Burst)
	}
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// served vote replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// retryAfter converts a reservation delay to whole seconds for Retry-After.
func retryAfter(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	s := math.Ceil(d.Seconds())
	if s > maxRetryAfter {
		return maxRetryAfter
	}
	return int(s)
}

// Handler returns the Gin middleware. A rejected request gets 429 with code
// "rate_limited" and a Retry-After header telling when the next token lands.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.opts.Clock.Now()
		class := rl.classOf(c)
		res := rl.limiterFor(class, rl.opts.Key(c), now).ReserveN(now, 1)
		if res.OK() {
			delay := res.DelayFrom(now)
			if delay == 0 {
				c.Next()
				return
			}
			res.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(retryAfter(delay)))
		} else {
			c.Header("Retry-After", strconv.Itoa(maxRetryAfter))
		}

		rateLimited.WithLabelValues(class).Inc()
		abortJSON(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	}
}
