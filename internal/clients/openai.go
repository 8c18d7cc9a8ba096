package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/metrics"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	backendOpenAI = "openai"

	simplifyTemperature = 0.7
	simplifyPrompt      = "Simplify the following Turkish text for individuals with dyslexia:\n\nOriginal text: %s\n\nSimplified version:"
)

// ChatCompleter is the part of the OpenAI client used for simplification.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient simplifies text through a chat completion model.
type OpenAIClient struct {
	api       ChatCompleter
	model     string
	maxTokens int
	logger    *logrus.Logger
}

// NewOpenAIClient creates a client for the configured endpoint
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *logrus.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return NewOpenAIClientWithAPI(openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.MaxTokens, logger)
}

// NewOpenAIClientWithAPI wraps an existing completion API.
func NewOpenAIClientWithAPI(api ChatCompleter, model string, maxTokens int, logger *logrus.Logger) *OpenAIClient {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &OpenAIClient{
		api:       api,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Simplify asks the model for a dyslexia-friendly rewrite of text.
func (c *OpenAIClient) Simplify(ctx context.Context, text string) (string, error) {
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(simplifyPrompt, text)},
		},
		Temperature: simplifyTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices in completion response")
	}
	metrics.RecordInferenceCall(backendOpenAI, "simplify", err, time.Since(start))

	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.WithField("status", apiErr.HTTPStatusCode).Warn("Chat completion rejected")
			return "", fmt.Errorf("OpenAI API error: %s", apiErr.Message)
		}
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
