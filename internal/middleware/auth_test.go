package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/models"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newGuardedApp(t *testing.T) (*fiber.App, *auth.TokenService) {
	t.Helper()

	tokens, err := auth.NewTokenService("middleware_test_secret", "HS256")
	require.NoError(t, err)

	users := append(auth.DefaultUsers(), models.User{
		Username: "sleepy",
		FullName: "Disabled Admin",
		Disabled: true,
		Role:     models.RoleAdmin,
	})
	store := auth.NewStaticCredentialStore(users)
	guards := NewAuthMiddleware(tokens, store, quietLogger())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(quietLogger())})
	whoami := func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	}
	app.Get("/any", guards.Authenticated(), whoami)
	app.Get("/active", guards.Active(), whoami)
	app.Get("/admin", guards.Admin(), whoami)

	return app, tokens
}

func doGet(t *testing.T, app *fiber.App, path, token string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func issue(t *testing.T, tokens *auth.TokenService, subject string) string {
	t.Helper()
	token, err := tokens.Issue(subject, time.Minute)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	app, _ := newGuardedApp(t)

	resp, body := doGet(t, app, "/any", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

	var payload apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "Not authenticated", payload.Detail)
	assert.Equal(t, apperrors.CodeUnauthenticated, payload.Error.Code)
}

func TestAuthMiddleware_InvalidCredentialsAreUniform(t *testing.T) {
	app, tokens := newGuardedApp(t)

	cases := map[string]string{
		"garbage":         "not-a-jwt",
		"unknown subject": issue(t, tokens, "ghost"),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := doGet(t, app, "/any", token)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, body, "Could not validate credentials")
		})
	}
}

func TestAuthMiddleware_Authenticated(t *testing.T) {
	app, tokens := newGuardedApp(t)

	resp, body := doGet(t, app, "/any", issue(t, tokens, "user"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user", body)
}

func TestAuthMiddleware_ActiveRejectsDisabled(t *testing.T) {
	app, tokens := newGuardedApp(t)

	resp, body := doGet(t, app, "/active", issue(t, tokens, "sleepy"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Inactive user")

	resp, _ = doGet(t, app, "/active", issue(t, tokens, "user"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware_Admin(t *testing.T) {
	app, tokens := newGuardedApp(t)

	resp, body := doGet(t, app, "/admin", issue(t, tokens, "user"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "The user doesn't have enough privileges")

	resp, body = doGet(t, app, "/admin", issue(t, tokens, "admin"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body)

	// A disabled admin still passes the admin guard.
	resp, _ = doGet(t, app, "/admin", issue(t, tokens, "sleepy"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCurrentUser(t *testing.T) {
	tokens, err := auth.NewTokenService("middleware_test_secret", "HS256")
	require.NoError(t, err)
	guards := NewAuthMiddleware(tokens, auth.NewStaticCredentialStore(auth.DefaultUsers()), quietLogger())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(quietLogger())})
	role := func(c *fiber.Ctx) error {
		if user := CurrentUser(c); user != nil {
			return c.SendString(string(user.Role))
		}
		return c.SendString("anonymous")
	}
	app.Get("/open", role)
	app.Get("/guarded", guards.Authenticated(), role)

	_, body := doGet(t, app, "/open", "")
	assert.Equal(t, "anonymous", body)

	_, body = doGet(t, app, "/guarded", issue(t, tokens, "admin"))
	assert.Equal(t, "admin", body)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
