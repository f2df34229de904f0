package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ims/backend/internal/interfaces/http/dto"
)

// RateLimiter tracks request counts per caller over a fixed window,
// kept in process memory. Entries for idle callers are pruned lazily
// on access rather than by a background goroutine.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration

	lastPrune time.Time
}

type bucket struct {
	remaining   int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window for each key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		limit:     limit,
		window:    window,
		lastPrune: time.Now(),
	}
}

// Allow consumes one slot for key, reporting whether the request may proceed
// and how many slots remain in the current window.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.pruneLocked(now)

	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		rl.buckets[key] = &bucket{remaining: rl.limit - 1, windowStart: now}
		return true, rl.limit - 1
	}
	if b.remaining == 0 {
		return false, 0
	}
	b.remaining--
	return true, b.remaining
}

// pruneLocked drops buckets whose window expired long ago. Called with mu held.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.window {
		return
	}
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= 2*rl.window {
			delete(rl.buckets, key)
		}
	}
	rl.lastPrune = now
}

// RetryAfter returns how long the caller behind key must wait before the
// window resets. Zero when the key still has capacity.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || b.remaining > 0 {
		return 0
	}
	wait := rl.window - time.Since(b.windowStart)
	if wait < 0 {
		return 0
	}
	return wait
}

// RateLimit throttles requests per branch and client IP. Requests carrying an
// X-Branch-ID header are counted per branch so one busy branch cannot starve
// the others behind the same NAT.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if branchID := c.GetHeader(BranchHeaderKey); branchID != "" {
			key = branchID + "|" + key
		}

		ok, remaining := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			retryAfter := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests, retry later",
			))
			return
		}

		c.Next()
	}
}
