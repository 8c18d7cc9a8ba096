package routes

import (
	"context"
	"time"

	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/history"
	"github.com/okuma-lab/readability-api/internal/logging"
	"github.com/okuma-lab/readability-api/internal/metrics"
	"github.com/okuma-lab/readability-api/internal/middleware"
	"github.com/okuma-lab/readability-api/internal/stats"
	"github.com/okuma-lab/readability-api/internal/utils"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/sirupsen/logrus"
)

const serviceName = "readability-api"

// Dependencies are the services the routes are built from. Everything is
// constructed once at startup and passed in.
type Dependencies struct {
	Config      *config.Config
	Logger      *logrus.Logger
	Middleware  *middleware.Manager
	Credentials auth.CredentialStore
	Tokens      *auth.TokenService
	Inference   Inference
	History     *history.Service
	Stats       *stats.Aggregator
}

// Setup configures all API routes
func Setup(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	logger := deps.Logger
	mw := deps.Middleware

	authHandler := NewAuthHandler(deps.Credentials, deps.Tokens, cfg.Auth.TokenTTL, logger)
	predictHandler := NewPredictHandler(deps.Inference, deps.History, logger)
	simplifyHandler := NewSimplifyHandler(deps.Inference, deps.History, logger)
	historyHandler := NewHistoryHandler(deps.History, logger)
	statisticsHandler := NewStatisticsHandler(deps.Stats, logger)

	app.Use(metrics.HTTPMetricsMiddleware())
	app.Use(mw.ErrorLogger.Handle())

	// System endpoints (no auth required)
	app.Get("/", rootHandler)
	app.Get("/health", healthCheck(deps))
	app.Get("/version", versionHandler)
	app.Get(cfg.Observability.MetricsPath, metrics.PrometheusHandler())
	app.Get("/swagger/*", swagger.HandlerDefault)

	// The limiter runs after the guards so authenticated callers are keyed
	// by username; /auth/token is keyed by client IP.
	limit := mw.RateLimit.Handle()

	app.Post("/auth/token", limit, authHandler.Token)

	active := mw.Auth.Active()

	app.Post("/predict/", active, limit, predictHandler.Predict)
	app.Post("/simplify/", active, limit, simplifyHandler.Simplify)

	historyRoutes := app.Group("/history", active, limit)
	historyRoutes.Post("/save", mw.Idempotency.Handle(), historyHandler.Save)
	historyRoutes.Get("/", historyHandler.List)
	historyRoutes.Delete("/clear", historyHandler.Clear)
	historyRoutes.Get("/export", historyHandler.Export)

	app.Get("/statistics/", mw.Auth.Admin(), limit, statisticsHandler.Global)

	// 404 handler
	app.Use(notFoundHandler)
}

// rootHandler greets API clients
// @Summary Welcome
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func rootHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome to the Dyslexia Text Analyzer API 🚀",
	})
}

// healthCheck pings the history store
// @Summary Health check
// @Description Check connectivity to the history store
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 500 {object} map[string]interface{} "Unhealthy"
// @Router /health [get]
func healthCheck(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		if err := deps.History.Ping(ctx); err != nil {
			deps.Logger.WithError(err).Error("History store health check failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}

		resp := fiber.Map{
			"status":   "healthy",
			"database": "connected",
			"backend":  deps.History.Backend(),
		}
		if deps.History.Backend() == config.StoreMongo {
			resp["mongo_url"] = utils.RedactURL(deps.Config.Mongo.URL)
		}

		if rc := deps.Middleware.RedisClient; rc != nil {
			resp["redis"] = "connected"
			if err := middleware.RedisHealthCheck(rc, deps.Logger)(ctx); err != nil {
				resp["redis"] = "unavailable"
			}
		}

		return c.JSON(resp)
	}
}

// versionHandler returns version information
// @Summary Version information
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Version info"
// @Router /version [get]
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"version": logging.Version(),
	})
}

func notFoundHandler(c *fiber.Ctx) error {
	return apperrors.NewAppError(apperrors.CodeNotFound, "Not Found", nil)
}
