// Package api assembles the Fiber application: middleware, error rendering,
// health and metrics endpoints, and the REST routes.
package api

import (
	"strings"
	"time"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/echolearn/echolearn-backend/internal/metrics"
	"github.com/echolearn/echolearn-backend/internal/ratelimit"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/echolearn/echolearn-backend/restapi"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

// Options are the collaborators of the app
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Service  *auth.Service
	Limiters *ratelimit.Limiters
	Metrics  *metrics.Metrics
	// Schema is optional; when set it is served at /api/graphql
	Schema *graphql.Schema
	// AccessLog enables the per-request log line
	AccessLog bool
}

// NewFiberApp creates and configures a Fiber app with the REST routes
func NewFiberApp(opts Options) *fiber.App {
	cfg := opts.Config
	started := time.Now()

	app := fiber.New(fiber.Config{
		AppName:      "echolearn-backend API v1.0",
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ReadTimeout:  60 * time.Second,
		ErrorHandler: ErrorHandler(opts.Logger, cfg.IsProduction()),
	})

	// Middleware
	app.Use(fiberrecover.New(fiberrecover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(helmet.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.FrontendURLs, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		AllowMethods:     "GET, POST, HEAD, PUT, DELETE, PATCH, OPTIONS",
	}))

	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(opts.Metrics.Middleware())

	// Health check endpoint
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(model.HealthResponse{
			Status:    "OK",
			Timestamp: time.Now().UTC(),
			Uptime:    time.Since(started).Seconds(),
		})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", opts.Metrics.Handler())
	}

	restapi.SetupRoutes(app, opts.Service, opts.Limiters, opts.Schema)

	app.Use(func(c *fiber.Ctx) error {
		return apperr.NotFound("Endpoint not found")
	})

	return app
}
