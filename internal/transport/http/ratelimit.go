package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const sweepThreshold = 4096

// rateLimiter is a fixed-window counter keyed by client.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 || window <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// allow counts one request for key and reports whether it is within the limit,
// how many requests remain, and when the window resets.
func (r *rateLimiter) allow(key string) (bool, int, time.Time) {
	if r == nil || r.limit <= 0 {
		return true, 0, time.Time{}
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buckets) > sweepThreshold {
		for k, b := range r.buckets {
			if now.Sub(b.start) >= r.window {
				delete(r.buckets, k)
			}
		}
	}

	b := r.buckets[key]
	if b == nil || now.Sub(b.start) >= r.window {
		b = &bucket{start: now}
		r.buckets[key] = b
	}
	b.count++

	remaining := r.limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return b.count <= r.limit, remaining, b.start.Add(r.window)
}

// RateLimitMiddleware limits requests per client IP and reports the standard
// RateLimit-* headers.
func RateLimitMiddleware(r *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil || r.limit <= 0 {
			c.Next()
			return
		}
		ok, remaining, reset := r.allow(c.ClientIP())

		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(r.limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(int(time.Until(reset).Round(time.Second).Seconds())))

		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
