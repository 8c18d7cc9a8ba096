package routes

import (
	"time"

	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/models"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles token issuance
type AuthHandler struct {
	credentials auth.CredentialStore
	tokens      *auth.TokenService
	tokenTTL    time.Duration
	logger      *logrus.Logger
}

func NewAuthHandler(credentials auth.CredentialStore, tokens *auth.TokenService, tokenTTL time.Duration, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// Token exchanges a username and password for a bearer token
// @Summary Issue access token
// @Description Authenticate with username and password (form or JSON) and receive a bearer token
// @Tags Auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Failure 401 {object} errors.ErrorResponse "Incorrect username or password"
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, ok := auth.Authenticate(h.credentials, h.tokens, req.Username, req.Password)
	if !ok {
		h.logger.WithField("username", req.Username).Warn("Failed login attempt")
		return apperrors.Unauthorized("Incorrect username or password")
	}

	token, err := h.tokens.Issue(user.Username, h.tokenTTL)
	if err != nil {
		return apperrors.NewAppError(apperrors.CodeInternalError, "Failed to issue token", err)
	}

	h.logger.WithField("user_id", user.Username).Info("Access token issued")

	return c.JSON(models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
