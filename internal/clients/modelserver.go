package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/metrics"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	backendModelServer = "model_server"

	// Inputs longer than this many tokens are truncated by the model server.
	maxInputTokens = 512
)

// GenerationParams control beam search on the seq2seq simplifier.
type GenerationParams struct {
	NumBeams      int     `json:"num_beams"`
	LengthPenalty float64 `json:"length_penalty"`
	MaxLength     int     `json:"max_length"`
	EarlyStopping bool    `json:"early_stopping"`
}

// DefaultGenerationParams are the decoding settings used for mt5 simplification.
var DefaultGenerationParams = GenerationParams{
	NumBeams:      4,
	LengthPenalty: 1.0,
	MaxLength:     128,
	EarlyStopping: true,
}

type classifyRequest struct {
	Model      string `json:"model"`
	Text       string `json:"text"`
	MaxLength  int    `json:"max_length"`
	Truncation bool   `json:"truncation"`
}

type classifyResponse struct {
	Logits []float64 `json:"logits"`
}

type generateRequest struct {
	Model          string `json:"model"`
	Text           string `json:"text"`
	MaxInputLength int    `json:"max_input_length"`
	Truncation     bool   `json:"truncation"`
	GenerationParams
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

type modelServerError struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// ModelServerClient talks to the inference server hosting the readability
// classifier and the mt5 simplifier.
type ModelServerClient struct {
	baseURL        string
	classifierPath string
	simplifierPath string
	params         GenerationParams
	httpClient     *http.Client
	logger         *logrus.Logger
}

// NewModelServerClient creates a new model server client
func NewModelServerClient(cfg *config.ModelConfig, logger *logrus.Logger) *ModelServerClient {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			MaxIdleConns:        100,
			MaxConnsPerHost:     10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}),
	}

	return &ModelServerClient{
		baseURL:        strings.TrimRight(cfg.ServerURL, "/"),
		classifierPath: cfg.Path,
		simplifierPath: cfg.SimplifierPath,
		params:         DefaultGenerationParams,
		httpClient:     httpClient,
		logger:         logger,
	}
}

// Logits returns the raw classifier output for a single text.
func (c *ModelServerClient) Logits(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()

	var out classifyResponse
	err := c.post(ctx, "/v1/classify", classifyRequest{
		Model:      c.classifierPath,
		Text:       text,
		MaxLength:  maxInputTokens,
		Truncation: true,
	}, &out)
	if err == nil && len(out.Logits) == 0 {
		err = fmt.Errorf("model server returned no logits")
	}

	metrics.RecordInferenceCall(backendModelServer, "classify", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return out.Logits, nil
}

// Generate runs the seq2seq simplifier and returns the decoded text.
func (c *ModelServerClient) Generate(ctx context.Context, text string) (string, error) {
	start := time.Now()

	var out generateResponse
	err := c.post(ctx, "/v1/generate", generateRequest{
		Model:            c.simplifierPath,
		Text:             text,
		MaxInputLength:   maxInputTokens,
		Truncation:       true,
		GenerationParams: c.params,
	}, &out)

	metrics.RecordInferenceCall(backendModelServer, "generate", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return out.GeneratedText, nil
}

func (c *ModelServerClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("Model server returned error")
		return fmt.Errorf("model server error (%d): %s", resp.StatusCode, upstreamMessage(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func upstreamMessage(body []byte) string {
	var e modelServerError
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}
