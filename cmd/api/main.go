package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/okuma-lab/readability-api/docs" // Swagger docs
	"github.com/okuma-lab/readability-api/internal/auth"
	"github.com/okuma-lab/readability-api/internal/clients"
	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/history"
	"github.com/okuma-lab/readability-api/internal/inference"
	"github.com/okuma-lab/readability-api/internal/logging"
	"github.com/okuma-lab/readability-api/internal/metrics"
	"github.com/okuma-lab/readability-api/internal/middleware"
	"github.com/okuma-lab/readability-api/internal/routes"
	"github.com/okuma-lab/readability-api/internal/stats"
	"github.com/okuma-lab/readability-api/internal/store/dynamo"
	"github.com/okuma-lab/readability-api/internal/store/memory"
	"github.com/okuma-lab/readability-api/internal/store/mongo"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

// @title Dyslexia Text Analyzer API
// @version 1.0
// @description Readability prediction and simplification service for Turkish texts.

// @host localhost:8000
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logging.New(cfg)

	// Initialize metrics
	if err := metrics.Init(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize metrics")
	}

	// Initialize tracing
	tracingShutdown, err := middleware.InitTracing(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracing")
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dyslexia Text Analyzer API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Requested-With,Idempotency-Key,X-Trace-Id",
		MaxAge:       86400,
	}))
	app.Use(otelfiber.Middleware())

	if cfg.Server.Environment != "production" {
		app.Use(pprof.New())
	}

	// Authentication
	tokens, err := auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.Algorithm, auth.WithBcryptCost(cfg.Auth.BcryptCost))
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}
	credentials := auth.NewStaticCredentialStore(auth.DefaultUsers())

	// Initialize middleware manager
	middlewareManager, err := middleware.NewManager(cfg, tokens, credentials, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize middleware manager")
	}

	// History store
	repo, closeRepo, err := initializeRepository(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize history store")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.Store.StartupTimeout)
	if err := repo.Ping(startupCtx); err != nil {
		cancel()
		logger.WithError(err).Fatal("History store is unreachable")
	}
	if err := repo.EnsureIndexes(startupCtx); err != nil {
		cancel()
		logger.WithError(err).Fatal("Failed to ensure history indexes")
	}
	cancel()

	historyService := history.NewService(repo, logger)
	aggregator := stats.NewAggregator(historyService)

	// Inference backends
	modelServer := clients.NewModelServerClient(&cfg.Model, logger)
	openAI := clients.NewOpenAIClient(&cfg.OpenAI, logger)
	gateway := inference.NewGateway(modelServer, modelServer, openAI, logger)

	// Setup routes
	routes.Setup(app, routes.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Middleware:  middlewareManager,
		Credentials: credentials,
		Tokens:      tokens,
		Inference:   gateway,
		History:     historyService,
		Stats:       aggregator,
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	logger.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"backend": repo.Name(),
	}).Info("Starting Dyslexia Text Analyzer API server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Error("Server stopped with error")
	}

	if err := middlewareManager.Close(); err != nil {
		logger.WithError(err).Error("Failed to close middleware resources")
	}
	if err := closeRepo(); err != nil {
		logger.WithError(err).Error("Failed to close history store")
	}
}

func initializeRepository(cfg *config.Config, logger *logrus.Logger) (history.Repository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.StoreDynamoDB:
		client, err := dynamo.NewClient(context.Background(), cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.NewRepository(client, &cfg.DynamoDB, logger), noop, nil
	case config.StoreMemory:
		logger.Warn("Using in-memory history store, records are lost on restart")
		return memory.NewRepository(), noop, nil
	default:
		repo, err := mongo.NewRepository(&cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return repo.Close(ctx)
		}
		return repo, closeFn, nil
	}
}
