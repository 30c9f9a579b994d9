package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/pkg/response"
)

// RateLimiter counts requests per user in fixed redis windows
type RateLimiter struct {
	redis *redis.Client
}

// NewRateLimiter creates a limiter; with a nil client every request is allowed
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

func windowKey(scope, userID string) string {
	return "ratelimit:" + scope + ":" + userID
}

// hit records one request and returns the window's count and remaining lifetime.
func (rl *RateLimiter) hit(c *fiber.Ctx, key string, window time.Duration) (int64, time.Duration, error) {
	ctx := c.UserContext()
	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

// Limit allows up to limit requests per user per window under the given scope.
// Anonymous callers and redis failures pass through.
func (rl *RateLimiter) Limit(scope string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if rl.redis == nil || limit <= 0 || userID == "" {
			return c.Next()
		}

		count, ttl, err := rl.hit(c, windowKey(scope, userID), window)
		if err != nil {
			return c.Next()
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			if ttl < time.Second {
				ttl = time.Second
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())))
			return response.RateLimited(c)
		}
		return c.Next()
	}
}

// AnalyzeLimit limits image analysis, which calls the vision model
func (rl *RateLimiter) AnalyzeLimit(perHour int) fiber.Handler {
	return rl.Limit("analyze", perHour, time.Hour)
}

// RecommendLimit limits recommendation and replacement lookups
func (rl *RateLimiter) RecommendLimit(perMinute int) fiber.Handler {
	return rl.Limit("recommend", perMinute, time.Minute)
}

func (rl *RateLimiter) SearchLimit(perMinute int) fiber.Handler {
	return rl.Limit("search", perMinute, time.Minute)
}

// PlaylistLimit limits playlist saves, sync and async alike
func (rl *RateLimiter) PlaylistLimit(perHour int) fiber.Handler {
	return rl.Limit("playlist", perHour, time.Hour)
}
