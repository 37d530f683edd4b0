package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openaula/exam-backend/internal/response"
)

// RateLimiter throttles requests per client IP using a token bucket.
// Login is the main consumer: it caps credential guessing without
// affecting authenticated exam traffic.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	burst  int
	refill time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter allows burst requests per refill interval for each IP.
func NewRateLimiter(burst int, refill time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		burst:   burst,
		refill:  refill,
	}

	go func() {
		for range time.Tick(time.Minute) {
			rl.evictStale()
		}
	}()

	return rl
}

// Middleware returns a Gin middleware enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, lastRefill: time.Now()}
		rl.buckets[ip] = b
	}

	if intervals := int(time.Since(b.lastRefill) / rl.refill); intervals > 0 {
		b.tokens += intervals * rl.burst
		if b.tokens > rl.burst {
			b.tokens = rl.burst
		}
		b.lastRefill = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if time.Since(b.lastRefill) > 3*time.Minute {
			delete(rl.buckets, ip)
		}
	}
}
