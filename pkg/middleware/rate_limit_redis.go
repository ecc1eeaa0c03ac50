package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica using the
// same Redis. A window admits floor(rps*window)+burst requests per key.
type RedisLimiter struct {
	client  *redis.Client
	window  time.Duration
	allowed int64
	now     func() time.Time
}

func NewRedisLimiter(client *redis.Client, rps float64, burst int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client:  client,
		window:  window,
		allowed: int64(rps*window.Seconds()) + int64(burst),
		now:     time.Now,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	secs := int64(r.window.Seconds())
	redisKey := fmt.Sprintf("rl:%s:%d", key, r.now().Unix()/secs)

	cnt, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if cnt == 1 {
		_ = r.client.Expire(ctx, redisKey, r.window+time.Second).Err()
	}
	return cnt <= r.allowed, nil
}

func (r *RedisLimiter) Backend() string { return "redis" }

func (r *RedisLimiter) RetryAfter() time.Duration { return r.window }

// RedisRateLimitMiddleware falls back to the in-memory limiter when client is nil.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	return RateLimit(NewRedisLimiter(client, rps, burst, window))
}
