package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pageza/fridgechef/backend/internal/types"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter decides whether the client identified by key may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed window limiter shared by every instance using the same Redis
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

// NewRedisLimiter creates a new rate limiter backed by Redis
func NewRedisLimiter(redisClient *redis.Client, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Allow counts the request in the current window
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to count request: %w", err)
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= rl.config.Limit,
		Remaining: remaining,
		Reset:     windowStart.Add(rl.config.Window),
	}, nil
}

// MemoryLimiter keeps a token bucket per client in process memory. It is used when
// no Redis is configured.
type MemoryLimiter struct {
	config RateLimitConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter creates a limiter allowing config.Limit requests per config.Window
// with bursts of the same size
func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	return &MemoryLimiter{
		config:    config,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Allow takes a token from the client's bucket
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := time.Now()

	ml.mu.Lock()
	ml.sweep(now)
	b, ok := ml.buckets[key]
	if !ok {
		every := rate.Every(ml.config.Window / time.Duration(ml.config.Limit))
		b = &bucket{limiter: rate.NewLimiter(every, ml.config.Limit)}
		ml.buckets[key] = b
	}
	b.lastSeen = now
	ml.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// time until the bucket is full again
	missing := float64(ml.config.Limit) - tokens
	reset := now
	if missing > 0 {
		reset = now.Add(time.Duration(missing / float64(b.limiter.Limit()) * float64(time.Second)))
	}

	return Decision{Allowed: allowed, Remaining: remaining, Reset: reset}, nil
}

// sweep drops buckets idle for a whole window. Such a bucket has refilled, so a
// fresh one behaves the same. Must be called with mu held.
func (ml *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(ml.lastSweep) < ml.config.Window {
		return
	}
	for key, b := range ml.buckets {
		if now.Sub(b.lastSeen) >= ml.config.Window {
			delete(ml.buckets, key)
		}
	}
	ml.lastSweep = now
}

// RateLimit returns a Gin middleware that limits requests per client IP. When the
// limiter itself fails the request is let through.
func RateLimit(limiter Limiter, config RateLimitConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("rate limit check failed")
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.Reset).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Error:   types.ErrMsgRateLimited,
				Message: fmt.Sprintf("You have exceeded the rate limit of %d requests per %v", config.Limit, config.Window),
			})
			return
		}

		c.Next()
	}
}
