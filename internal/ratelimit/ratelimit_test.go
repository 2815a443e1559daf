package ratelimit

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s := NewRedisStorageFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStorage(t *testing.T) {
	s, mr := newRedisStorage(t)

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("a", []byte("1"), time.Minute))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, s.Set("", []byte("ignored"), 0))

	got, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
	assert.True(t, mr.Exists("echolearn:ratelimit:a"))
	assert.Equal(t, time.Minute, mr.TTL("echolearn:ratelimit:a"))

	mr.FastForward(2 * time.Minute)
	got, err = s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, got, "expired keys read as missing")

	require.NoError(t, s.Delete("b"))
	assert.False(t, mr.Exists("echolearn:ratelimit:b"))
}

func TestRedisStorageResetKeepsForeignKeys(t *testing.T) {
	s, mr := newRedisStorage(t)

	require.NoError(t, s.Set("x", []byte("1"), 0))
	require.NoError(t, s.Set("y", []byte("1"), 0))
	require.NoError(t, mr.Set("session:abc", "keep"))

	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("echolearn:ratelimit:x"))
	assert.False(t, mr.Exists("echolearn:ratelimit:y"))
	assert.True(t, mr.Exists("session:abc"))
}

// errorHandler renders apperr values the way the API does
func errorHandler(c *fiber.Ctx, err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return c.Status(e.Status()).JSON(fiber.Map{"error": e.Kind, "message": e.Message, "details": e.Details})
	}
	return c.SendStatus(fiber.StatusInternalServerError)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RateLimitMax = 2
	cfg.RateLimitWindow = time.Minute
	cfg.AuthRateLimitMax = 2
	cfg.RegisterRateLimitMax = 1
	return cfg
}

func TestGeneralLimiter(t *testing.T) {
	s, _ := newRedisStorage(t)
	limiters := New(testConfig(), s, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(limiters.General)
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))

	var body struct {
		Error   string         `json:"error"`
		Details map[string]int `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "TooManyRequests", body.Error)
	assert.Greater(t, body.Details["retryAfter"], 0)
}

func TestLoginLimiterCountsOnlyFailures(t *testing.T) {
	limiters := New(testConfig(), nil, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Post("/login", limiters.Login, RenderErrors, func(c *fiber.Ctx) error {
		if c.Query("ok") == "1" {
			return c.SendString("welcome")
		}
		return apperr.Unauthenticated("Invalid email or password")
	})

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login?ok=1", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "successful logins are not counted")
	}

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/login?ok=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
