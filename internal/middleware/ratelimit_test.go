package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/config"
)

// bucketScripter answers the token bucket script from a per-key counter.
type bucketScripter struct {
	budget int64
	used   map[string]int64
	err    error
}

func (b *bucketScripter) run(keys []string) *redis.Cmd {
	if b.err != nil {
		return redis.NewCmdResult(nil, b.err)
	}
	key := keys[0]
	if b.used[key] >= b.budget {
		return redis.NewCmdResult([]interface{}{int64(0), int64(0)}, nil)
	}
	b.used[key]++
	return redis.NewCmdResult([]interface{}{int64(1), b.budget - b.used[key]}, nil)
}

func (b *bucketScripter) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketScripter) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketScripter) EvalRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketScripter) EvalShaRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketScripter) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (b *bucketScripter) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func newLimitedApp(scripter redis.Scripter) *fiber.App {
	cfg := &config.RateLimitConfig{
		Enabled:     true,
		RPS:         2,
		Burst:       2,
		WindowSize:  time.Second,
		ExemptPaths: []string{"/health"},
	}
	limiter := NewRateLimitMiddleware(cfg, scripter, quietLogger())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(quietLogger())})
	app.Use(limiter.Handle())
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/predict", ok)
	app.Get("/health", ok)
	return app
}

func limitedGet(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(fiber.HeaderXForwardedFor, "10.0.0.7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	scripter := &bucketScripter{budget: 2, used: map[string]int64{}}
	app := newLimitedApp(scripter)

	resp := limitedGet(t, app, "/predict")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	resp = limitedGet(t, app, "/predict")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = limitedGet(t, app, "/predict")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))

	assert.Equal(t, int64(2), scripter.used["ratelimit:ip:10.0.0.7"])
}

func TestRateLimit_ExemptPath(t *testing.T) {
	scripter := &bucketScripter{budget: 0, used: map[string]int64{}}
	app := newLimitedApp(scripter)

	resp := limitedGet(t, app, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	scripter := &bucketScripter{err: errors.New("connection refused"), used: map[string]int64{}}
	app := newLimitedApp(scripter)

	for i := 0; i < 3; i++ {
		resp := limitedGet(t, app, "/predict")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimit_KeysByUserAfterGuard(t *testing.T) {
	tokens, err := auth.NewTokenService("middleware_test_secret", "HS256")
	require.NoError(t, err)
	guards := NewAuthMiddleware(tokens, auth.NewStaticCredentialStore(auth.DefaultUsers()), quietLogger())

	scripter := &bucketScripter{budget: 5, used: map[string]int64{}}
	limiter := NewRateLimitMiddleware(&config.RateLimitConfig{
		Enabled:    true,
		RPS:        5,
		Burst:      5,
		WindowSize: time.Second,
	}, scripter, quietLogger())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(quietLogger())})
	app.Get("/predict", guards.Active(), limiter.Handle(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/open", limiter.Handle(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+issue(t, tokens, "user"))
	req.Header.Set(fiber.HeaderXForwardedFor, "10.0.0.7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = limitedGet(t, app, "/open")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int64(1), scripter.used["ratelimit:user:user"])
	assert.Equal(t, int64(1), scripter.used["ratelimit:ip:10.0.0.7"])
}
