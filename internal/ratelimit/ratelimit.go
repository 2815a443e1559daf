// Package ratelimit builds the per-client request limiters: a general one for
// the whole API and stricter ones for login and registration.
package ratelimit

import (
	"strconv"
	"time"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

// Fixed windows for the credential endpoints
const (
	LoginWindow    = 15 * time.Minute
	RegisterWindow = time.Hour
)

// Limiters holds the three configured middlewares
type Limiters struct {
	General  fiber.Handler
	Login    fiber.Handler
	Register fiber.Handler
}

// New builds the limiters. storage may be nil, in which case counters live
// in process memory.
func New(cfg *config.Config, storage fiber.Storage, logger *zap.Logger) *Limiters {
	return &Limiters{
		General: limiter.New(limiterConfig("api", cfg.RateLimitMax, cfg.RateLimitWindow, false, storage, logger,
			"Too many requests from this IP, please try again later.")),
		Login: limiter.New(limiterConfig("login", cfg.AuthRateLimitMax, LoginWindow, true, storage, logger,
			"Too many login attempts from this IP, please try again later.")),
		Register: limiter.New(limiterConfig("register", cfg.RegisterRateLimitMax, RegisterWindow, false, storage, logger,
			"Too many registration attempts from this IP, please try again later.")),
	}
}

func limiterConfig(name string, max int, window time.Duration, skipSuccessful bool, storage fiber.Storage, logger *zap.Logger, message string) limiter.Config {
	cfg := limiter.Config{
		Max:                    max,
		Expiration:             window,
		SkipSuccessfulRequests: skipSuccessful,
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			logger.Warn("Rate limit exceeded", zap.String("limiter", name), zap.String("ip", c.IP()))
			retryAfter, _ := strconv.Atoi(string(c.Response().Header.Peek(fiber.HeaderRetryAfter)))
			return apperr.New(apperr.KindTooManyRequests, message).
				WithDetails(map[string]int{"retryAfter": retryAfter})
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return cfg
}

// RenderErrors runs the app's error handler as soon as the downstream handler
// fails, so a limiter mounted before it sees the final status code. Mount it
// between a limiter that skips successful or failed requests and the handler.
func RenderErrors(c *fiber.Ctx) error {
	if err := c.Next(); err != nil {
		return c.App().Config().ErrorHandler(c, err)
	}
	return nil
}
