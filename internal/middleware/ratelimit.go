package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/metrics"
	"github.com/okuma-lab/readability-api/internal/utils"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Token bucket kept in a Redis hash, refilled by elapsed server time.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local tokens = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local current_tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or 0

local now = redis.call("TIME")
local now_ms = now[1] * 1000 + math.floor(now[2] / 1000)

if last_refill > 0 then
    local elapsed = now_ms - last_refill
    current_tokens = math.min(capacity, current_tokens + math.floor(elapsed / interval_ms * tokens))
end

local allowed = 0
if current_tokens >= 1 then
    current_tokens = current_tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", current_tokens, "last_refill", now_ms)
redis.call("EXPIRE", key, 3600)

return {allowed, current_tokens}`)

type RateLimitMiddleware struct {
	config      *config.RateLimitConfig
	redisClient redis.Scripter
	breaker     *CircuitBreaker
	logger      *logrus.Logger
}

// NewRateLimitMiddleware builds the limiter. A nil client disables it.
func NewRateLimitMiddleware(cfg *config.RateLimitConfig, redisClient redis.Scripter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		config:      cfg,
		redisClient: redisClient,
		breaker:     NewCircuitBreaker("ratelimit-redis", logger),
		logger:      logger,
	}
}

func (r *RateLimitMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !r.config.Enabled || r.redisClient == nil {
			return c.Next()
		}

		path := c.Path()
		if utils.HasAnyPrefix(path, r.config.ExemptPaths) {
			return c.Next()
		}

		keyType, key := r.generateKey(c)

		allowed, remaining, err := r.checkRateLimit(c.UserContext(), key)
		if err != nil {
			// Fail open: history and inference stay available without Redis.
			r.logger.WithError(err).Debug("Rate limit check skipped")
			return c.Next()
		}

		resetTime := time.Now().Add(r.config.WindowSize).Truncate(time.Second)
		r.setRateLimitHeaders(c, remaining, resetTime)

		if !allowed {
			metrics.RecordRateLimitDrop(keyType)
			r.logger.WithFields(logrus.Fields{
				"key":    key,
				"path":   path,
				"method": c.Method(),
			}).Warn("Rate limit exceeded")
			return apperrors.NewAppError(apperrors.CodeRateLimited, "Rate limit exceeded. Please try again later.", nil)
		}

		return c.Next()
	}
}

// generateKey prefers the caller's username and falls back to the client IP.
func (r *RateLimitMiddleware) generateKey(c *fiber.Ctx) (string, string) {
	if userID := GetUserID(c); userID != "" {
		return "user", fmt.Sprintf("ratelimit:user:%s", userID)
	}
	return "ip", fmt.Sprintf("ratelimit:ip:%s", clientIP(c))
}

func clientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}

func (r *RateLimitMiddleware) checkRateLimit(ctx context.Context, key string) (bool, int, error) {
	var result []interface{}
	err := r.breaker.Execute(func() error {
		intervalMs := r.config.WindowSize.Milliseconds()
		if intervalMs <= 0 {
			intervalMs = 1000
		}
		res, err := tokenBucketScript.Run(ctx, r.redisClient, []string{key}, r.config.Burst, r.config.RPS, intervalMs).Slice()
		metrics.RecordRedisOperation("ratelimit", err)
		if err != nil {
			return fmt.Errorf("failed to execute rate limit script: %w", err)
		}
		result = res
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected script result format")
	}
	allowed, ok := result[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("failed to parse allowed result")
	}
	remaining, ok := result[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("failed to parse remaining result")
	}

	return allowed == 1, int(remaining), nil
}

func (r *RateLimitMiddleware) setRateLimitHeaders(c *fiber.Ctx, remaining int, resetTime time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(r.config.RPS))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

	if remaining <= 0 {
		retryAfter := int(time.Until(resetTime).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	}
}
