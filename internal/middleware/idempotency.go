package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okuma-lab/readability-api/internal/metrics"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore is the subset of the Redis client used for replay caching.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// IdempotencyMiddleware replays the first successful response for a repeated
// Idempotency-Key. The header is optional; requests without it pass through.
type IdempotencyMiddleware struct {
	store  IdempotencyStore
	logger *logrus.Logger
	ttl    time.Duration
}

type IdempotencyRecord struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        string    `json:"body"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewIdempotencyMiddleware builds the middleware. A nil store disables it.
func NewIdempotencyMiddleware(store IdempotencyStore, ttl time.Duration, logger *logrus.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IdempotencyMiddleware{
		store:  store,
		logger: logger,
		ttl:    ttl,
	}
}

func (i *IdempotencyMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		idempotencyKey := c.Get(HeaderIdempotencyKey)
		if i.store == nil || idempotencyKey == "" {
			return c.Next()
		}

		if _, err := uuid.Parse(idempotencyKey); err != nil {
			return apperrors.BadRequest("Idempotency-Key must be a valid UUID")
		}

		ctx := c.UserContext()
		fingerprint := i.fingerprint(c)
		redisKey := fmt.Sprintf("idempotency:%s:%s", GetUserID(c), idempotencyKey)

		existing, err := i.load(ctx, redisKey)
		if err != nil {
			i.logger.WithError(err).Error("Failed to get idempotency record")
		}

		if existing != nil {
			if existing.Fingerprint != fingerprint {
				metrics.RecordIdempotencyHit("conflict")
				return apperrors.NewAppError(apperrors.CodeIdempotencyConflict,
					"Request body differs from original request with same Idempotency-Key", nil)
			}
			metrics.RecordIdempotencyHit("replay")
			c.Set("X-Idempotency-Cached", "true")
			if existing.ContentType != "" {
				c.Set(fiber.HeaderContentType, existing.ContentType)
			}
			return c.Status(existing.StatusCode).SendString(existing.Body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}

		record := &IdempotencyRecord{
			StatusCode:  statusCode,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
			Fingerprint: fingerprint,
			CreatedAt:   time.Now().UTC(),
		}
		if err := i.save(ctx, redisKey, record); err != nil {
			i.logger.WithError(err).WithField("idempotency_key", idempotencyKey).Error("Failed to store idempotency record")
		}

		return nil
	}
}

func (i *IdempotencyMiddleware) fingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte(":"))
	h.Write([]byte(c.Path()))
	h.Write([]byte(":"))
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}

func (i *IdempotencyMiddleware) load(ctx context.Context, key string) (*IdempotencyRecord, error) {
	data, err := i.store.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	metrics.RecordRedisOperation("idempotency_get", err)
	if err != nil {
		return nil, err
	}

	var record IdempotencyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &record, nil
}

func (i *IdempotencyMiddleware) save(ctx context.Context, key string, record *IdempotencyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	err = i.store.Set(ctx, key, data, i.ttl).Err()
	metrics.RecordRedisOperation("idempotency_set", err)
	return err
}
