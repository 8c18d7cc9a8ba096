package middleware

import (
	"errors"
	"time"

	"github.com/okuma-lab/readability-api/internal/logging"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler maps handler errors to the JSON error envelope.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var status int
		appErr, ok := apperrors.As(err)
		if ok {
			status = appErr.HTTPStatus()
		} else {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				appErr = apperrors.NewAppError(codeForStatus(fiberErr.Code), fiberErr.Message, err)
				status = fiberErr.Code
			} else {
				appErr = apperrors.NewAppError(apperrors.CodeInternalError, "Internal server error", err)
				status = fiber.StatusInternalServerError
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": status,
			}).Error("Request error")
		}

		if status == fiber.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return c.Status(status).JSON(appErr.ToErrorResponse(requestID(c)))
	}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusMethodNotAllowed:
		return apperrors.CodeBadRequest
	case fiber.StatusUnauthorized:
		return apperrors.CodeUnauthenticated
	case fiber.StatusForbidden:
		return apperrors.CodeForbidden
	case fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case fiber.StatusTooManyRequests:
		return apperrors.CodeRateLimited
	default:
		return apperrors.CodeInternalError
	}
}

func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

type ErrorLoggerMiddleware struct {
	logger *logrus.Logger
}

func NewErrorLoggerMiddleware(logger *logrus.Logger) *ErrorLoggerMiddleware {
	return &ErrorLoggerMiddleware{
		logger: logger,
	}
}

// Handle logs 4xx and 5xx responses with detailed context
func (e *ErrorLoggerMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		err := c.Next()

		// Guards and handlers return errors before the error handler has
		// written the status, so derive it from the error as well.
		statusCode := c.Response().StatusCode()
		if err != nil {
			if appErr, ok := apperrors.As(err); ok {
				statusCode = appErr.HTTPStatus()
			} else if fiberErr := new(fiber.Error); errors.As(err, &fiberErr) {
				statusCode = fiberErr.Code
			} else {
				statusCode = fiber.StatusInternalServerError
			}
		}

		if statusCode < 400 {
			return err
		}

		latencyMs := float64(time.Since(startTime).Microseconds()) / 1000
		logFields := logrus.Fields{
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
			"request_id": requestID(c),
		}

		if userID := GetUserID(c); userID != "" {
			logFields["user_id"] = userID
		}

		if len(c.Request().URI().QueryString()) > 0 {
			logFields["query"] = string(c.Request().URI().QueryString())
		}

		// Bodies carry user text and passwords; only the size is logged.
		if c.Method() == fiber.MethodPost {
			logFields["request_size"] = len(c.Body())
		}

		logEntry := logging.WithRequest(e.logger, c.Method(), c.Path(), statusCode, latencyMs).WithFields(logFields)
		if err != nil {
			logEntry = logEntry.WithError(err)
		}

		if statusCode >= 500 {
			logEntry.Error("Server error response")
		} else {
			logEntry.Warn("Client error response")
		}

		return err
	}
}
