package middleware

import (
	"fmt"

	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Manager holds all middleware instances
type Manager struct {
	Auth        *AuthMiddleware
	Idempotency *IdempotencyMiddleware
	RateLimit   *RateLimitMiddleware
	ErrorLogger *ErrorLoggerMiddleware
	RedisClient redis.UniversalClient
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager wires the middleware. Redis is only dialed when enabled; without
// it rate limiting and idempotency pass requests through.
func NewManager(cfg *config.Config, tokens TokenValidator, credentials auth.CredentialStore, logger *logrus.Logger) (*Manager, error) {
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := NewRedisClient(&cfg.Redis, &cfg.AWS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		redisClient = client
	}

	return &Manager{
		Auth:        NewAuthMiddleware(tokens, credentials, logger),
		Idempotency: NewIdempotencyMiddleware(redisClient, cfg.Redis.IdempotencyTTL, logger),
		RateLimit:   NewRateLimitMiddleware(&cfg.RateLimit, redisClient, logger),
		ErrorLogger: NewErrorLoggerMiddleware(logger),
		RedisClient: redisClient,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
