package middleware

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/okuma-lab/readability-api/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisDialTimeout = 5 * time.Second

// NewRedisClient dials the Redis deployment shared by the rate limiter and the
// idempotency cache. REDIS_ADDRESS may list several comma-separated cluster nodes.
func NewRedisClient(cfg *config.RedisConfig, awsCfg *config.AWSConfig, logger *logrus.Logger) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	password := cfg.Password
	if cfg.PasswordFromSecrets {
		secrets, err := newSecretsClient(awsCfg)
		if err != nil {
			return nil, err
		}
		password, err = redisPassword(ctx, secrets, awsCfg.SecretName)
		if err != nil {
			return nil, fmt.Errorf("failed to get Redis password from secrets: %w", err)
		}
		logger.WithField("secret_name", awsCfg.SecretName).Info("Redis password loaded from Secrets Manager")
	}

	opts := redisOptions(cfg, password)
	client := redis.NewUniversalClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"addrs": opts.Addrs,
		"db":    cfg.Database,
		"tls":   opts.TLSConfig != nil,
	}).Info("Connected to Redis")

	return client, nil
}

func redisOptions(cfg *config.RedisConfig, password string) *redis.UniversalOptions {
	var addrs []string
	for _, a := range strings.Split(cfg.Address, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}

	opts := &redis.UniversalOptions{
		Addrs:           addrs,
		Password:        password,
		DB:              cfg.Database,
		MaxRetries:      cfg.MaxRetries,
		PoolSize:        cfg.PoolSize,
		PoolTimeout:     cfg.PoolTimeout,
		DialTimeout:     redisDialTimeout,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		MinIdleConns:    2,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if cfg.TLSEnabled && len(addrs) > 0 {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: hostOf(addrs[0]),
		}
	}
	return opts
}

func hostOf(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}

func newSecretsClient(awsCfg *config.AWSConfig) (secretsmanageriface.SecretsManagerAPI, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(awsCfg.Region)},
		Profile:           awsCfg.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return secretsmanager.New(sess), nil
}

// redisPassword reads the secret as either a bare password or a JSON object
// with a "password" field.
func redisPassword(ctx context.Context, secrets secretsmanageriface.SecretsManagerAPI, secretName string) (string, error) {
	if secretName == "" {
		return "", fmt.Errorf("AWS_SECRET_NAME is not set")
	}

	out, err := secrets.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret %q: %w", secretName, err)
	}
	value := aws.StringValue(out.SecretString)
	if value == "" {
		return "", fmt.Errorf("secret %q has no string value", secretName)
	}

	if strings.HasPrefix(strings.TrimSpace(value), "{") {
		var doc struct {
			Password string `json:"password"`
		}
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return "", fmt.Errorf("secret %q is not valid JSON: %w", secretName, err)
		}
		if doc.Password == "" {
			return "", fmt.Errorf("secret %q has no password field", secretName)
		}
		return doc.Password, nil
	}
	return value, nil
}

// RedisHealthCheck returns a probe for Redis connectivity
func RedisHealthCheck(redisClient redis.UniversalClient, logger *logrus.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis health check failed")
			return fmt.Errorf("redis unavailable: %w", err)
		}
		return nil
	}
}
