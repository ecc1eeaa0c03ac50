package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gogotex/gogotex/backend/go-resource/pkg/metrics"
)

// Limiter decides whether one more request for key fits the budget.
// Backend is used as the metrics label.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Backend() string
	RetryAfter() time.Duration
}

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	rps   float64
	burst int
	store sync.Map // map[string]*rate.Limiter
}

func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{rps: rps, burst: burst}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	v, ok := m.store.Load(key)
	if !ok {
		v, _ = m.store.LoadOrStore(key, rate.NewLimiter(rate.Limit(m.rps), m.burst))
	}
	return v.(*rate.Limiter).Allow(), nil
}

func (m *MemoryLimiter) Backend() string { return "memory" }

func (m *MemoryLimiter) RetryAfter() time.Duration { return time.Second }

// RateLimit rejects requests over the limiter's budget with 429.
// The key is the authenticated subject when AuthMiddleware ran first,
// otherwise the client IP.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), requestKey(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed", "code": "internal_error"})
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(l.RetryAfter().Seconds())))
			metrics.RateLimitRejected.WithLabelValues(l.Backend()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(l.Backend()).Inc()
		c.Next()
	}
}

// RateLimitMiddleware is RateLimit over a fresh in-memory limiter.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return RateLimit(NewMemoryLimiter(rps, burst))
}

func requestKey(c *gin.Context) string {
	if sub := subject(c); sub != "" {
		return "sub:" + sub
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
