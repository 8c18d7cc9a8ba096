package middleware

import (
	"strings"

	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/models"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	localsUser   = "user"
	localsUserID = "user_id"
)

const credentialsMessage = "Could not validate credentials"

// TokenValidator resolves a bearer token to its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// AuthMiddleware exposes the three route guards. Each guard is a refinement
// of Authenticated; Admin deliberately does not require Active.
type AuthMiddleware struct {
	tokens      TokenValidator
	credentials auth.CredentialStore
	logger      *logrus.Logger
}

func NewAuthMiddleware(tokens TokenValidator, credentials auth.CredentialStore, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		credentials: credentials,
		logger:      logger,
	}
}

// Authenticated resolves the bearer token to a known user.
func (a *AuthMiddleware) Authenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := a.resolve(c); err != nil {
			return err
		}
		return c.Next()
	}
}

// Active additionally rejects disabled users.
func (a *AuthMiddleware) Active() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := a.resolve(c)
		if err != nil {
			return err
		}
		if user.Disabled {
			return apperrors.BadRequest("Inactive user")
		}
		return c.Next()
	}
}

// Admin additionally requires the admin role.
func (a *AuthMiddleware) Admin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := a.resolve(c)
		if err != nil {
			return err
		}
		if !user.IsAdmin() {
			a.logger.WithField("user_id", user.Username).Warn("Non-admin access to admin route")
			return apperrors.Forbidden("The user doesn't have enough privileges")
		}
		return c.Next()
	}
}

func (a *AuthMiddleware) resolve(c *fiber.Ctx) (*models.User, error) {
	tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, apperrors.Unauthorized("Not authenticated")
	}

	subject, err := a.tokens.Validate(tokenString)
	if err != nil {
		a.logger.WithError(err).WithField("path", c.Path()).Debug("Token validation failed")
		return nil, apperrors.Unauthorized(credentialsMessage)
	}

	user, found := a.credentials.Lookup(subject)
	if !found {
		a.logger.WithField("subject", subject).Debug("Token subject not in credential store")
		return nil, apperrors.Unauthorized(credentialsMessage)
	}

	c.Locals(localsUser, user)
	c.Locals(localsUserID, user.Username)
	return user, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the user resolved by a guard, or nil on unguarded routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(localsUser).(*models.User); ok {
		return user
	}
	return nil
}

// GetUserID extracts the caller's username from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals(localsUserID).(string); ok {
		return userID
	}
	return ""
}
