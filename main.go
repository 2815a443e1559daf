// package main provides the entry point for the EchoLearn authentication
// backend: it loads configuration, connects the user store and serves the
// REST API until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echolearn/echolearn-backend/database"
	"github.com/echolearn/echolearn-backend/events/modules/accounts"
	"github.com/echolearn/echolearn-backend/graphql/schema"
	"github.com/echolearn/echolearn-backend/internal/api"
	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/echolearn/echolearn-backend/internal/kafka"
	"github.com/echolearn/echolearn-backend/internal/logging"
	"github.com/echolearn/echolearn-backend/internal/metrics"
	"github.com/echolearn/echolearn-backend/internal/ratelimit"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/internal/store/memory"
	"github.com/echolearn/echolearn-backend/internal/store/postgres"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return err
	}

	deps := auth.Deps{
		Users:   users,
		Hasher:  auth.NewHasher(auth.PasswordCost),
		Tokens:  tokens,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := kafka.NewWriter(ctx, cfg.Kafka, logger)
		if err != nil {
			return err
		}
		producer := accounts.NewProducer(writer, logger)
		defer producer.Close()
		deps.Events = producer
		logger.Info("Publishing account events", zap.String("topic", cfg.Kafka.Topic))
	}

	svc := auth.NewService(deps)

	gqlSchema, err := schema.NewSchema(svc)
	if err != nil {
		return fmt.Errorf("building graphql schema: %w", err)
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Warn("Failed to bootstrap admin", zap.Error(err))
		}
	}

	var limiterStorage fiber.Storage
	if cfg.RedisURL != "" {
		redisStorage, err := ratelimit.NewRedisStorage(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStorage.Close()
		limiterStorage = redisStorage
		logger.Info("Rate limit counters stored in Redis")
	}

	app := api.NewFiberApp(api.Options{
		Config:    cfg,
		Logger:    logger,
		Service:   svc,
		Limiters:  ratelimit.New(cfg, limiterStorage, logger),
		Metrics:   deps.Metrics,
		Schema:    &gqlSchema,
		AccessLog: true,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("db_driver", cfg.DBDriver),
		)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listening: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// openStore selects the UserStore named by DB_DRIVER
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.UserStore, func(), error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		logger.Warn("Using in-memory user store; accounts are lost on restart")
		return memory.New(), func() {}, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.New(db), func() { _ = db.Close() }, nil

	default:
		conn, err := database.InitializeDatabase(ctx, cfg.Arango, logger)
		if err != nil {
			return nil, nil, err
		}
		return database.NewUserStore(conn), func() {}, nil
	}
}
