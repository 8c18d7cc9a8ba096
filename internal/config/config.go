package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	apperrors "github.com/okuma-lab/readability-api/pkg/errors"
)

const (
	StoreMongo    = "mongo"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Config is loaded from the environment. Nested fields are looked up as
// PREFIX_KEY first and fall back to the bare tag, so SECRET_KEY, ALGORITHM
// and MODEL_PATH work without the AUTH_/MODEL_ prefix.
type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Auth          AuthConfig          `envconfig:"AUTH"`
	Store         StoreConfig         `envconfig:"STORE"`
	Mongo         MongoConfig         `envconfig:"MONGO"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	Model         ModelConfig         `envconfig:"MODEL"`
	OpenAI        OpenAIConfig        `envconfig:"OPENAI"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	RateLimit     RateLimitConfig     `envconfig:"RATE_LIMIT"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"eu-central-1"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

type AuthConfig struct {
	SecretKey  string        `envconfig:"SECRET_KEY"`
	Algorithm  string        `envconfig:"ALGORITHM" default:"HS256"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"30m"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"12"`
}

type StoreConfig struct {
	Backend        string        `envconfig:"BACKEND" default:"mongo"`
	StartupTimeout time.Duration `envconfig:"STARTUP_TIMEOUT" default:"15s"`
}

type MongoConfig struct {
	URL      string        `envconfig:"URL" default:"mongodb://localhost:27017"`
	Database string        `envconfig:"DATABASE" default:"dyslexia_db"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

type DynamoDBConfig struct {
	Region              string `envconfig:"REGION" default:"eu-central-1"`
	Endpoint            string `envconfig:"ENDPOINT" default:""`
	PredictionTableName string `envconfig:"PREDICTION_TABLE_NAME" default:"prediction_history"`
	SimplifyTableName   string `envconfig:"SIMPLIFY_TABLE_NAME" default:"simplify_history"`
}

type ModelConfig struct {
	Path           string        `envconfig:"MODEL_PATH"`
	ServerURL      string        `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	SimplifierPath string        `envconfig:"SIMPLIFIER_PATH" default:"models/mt5_simplify_tr_model"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

type OpenAIConfig struct {
	APIKey    string        `envconfig:"API_KEY"`
	BaseURL   string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	Model     string        `envconfig:"MODEL" default:"gpt-3.5-turbo"`
	MaxTokens int           `envconfig:"MAX_TOKENS" default:"1000"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

type RedisConfig struct {
	Enabled             bool          `envconfig:"ENABLED" default:"false"`
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"50"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
	IdempotencyTTL      time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"5m"`
}

type RateLimitConfig struct {
	RPS         int           `envconfig:"RPS" default:"10"`
	Burst       int           `envconfig:"BURST" default:"20"`
	WindowSize  time.Duration `envconfig:"WINDOW_SIZE" default:"1s"`
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	ExemptPaths []string      `envconfig:"EXEMPT_PATHS" default:"/health,/metrics,/version,/swagger"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// envconfig splits on commas but keeps the surrounding spaces
	if exemptPaths := os.Getenv("RATE_LIMIT_EXEMPT_PATHS"); exemptPaths != "" {
		cfg.RateLimit.ExemptPaths = strings.Split(exemptPaths, ",")
		for i := range cfg.RateLimit.ExemptPaths {
			cfg.RateLimit.ExemptPaths[i] = strings.TrimSpace(cfg.RateLimit.ExemptPaths[i])
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Auth.SecretKey == "" {
		return apperrors.NotConfigured("SECRET_KEY environment variable not set")
	}
	if cfg.Model.Path == "" {
		return apperrors.NotConfigured("MODEL_PATH environment variable not set")
	}
	if cfg.OpenAI.APIKey == "" {
		return apperrors.NotConfigured("OPENAI_API_KEY environment variable not set")
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	switch cfg.Store.Backend {
	case StoreMongo, StoreDynamoDB, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}

	if cfg.Store.StartupTimeout <= 0 {
		return fmt.Errorf("invalid store startup timeout: %s", cfg.Store.StartupTimeout)
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
