package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/echolearn/echolearn-backend/graphql/schema"
	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/echolearn/echolearn-backend/internal/metrics"
	"github.com/echolearn/echolearn-backend/internal/ratelimit"
	"github.com/echolearn/echolearn-backend/internal/store/memory"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	app *fiber.App
	svc *auth.Service
}

func newTestServer(t *testing.T, mutate func(*config.Config), withLimiters bool) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.DBDriver = config.DriverMemory
	if mutate != nil {
		mutate(cfg)
	}

	logger := zaptest.NewLogger(t)
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	require.NoError(t, err)

	m := metrics.New()
	svc := auth.NewService(auth.Deps{
		Users:   memory.New(),
		Hasher:  auth.NewHasher(bcrypt.MinCost),
		Tokens:  tokens,
		Logger:  logger,
		Metrics: m,
	})

	gqlSchema, err := schema.NewSchema(svc)
	require.NoError(t, err)

	var limiters *ratelimit.Limiters
	if withLimiters {
		limiters = ratelimit.New(cfg, nil, logger)
	}

	app := NewFiberApp(Options{
		Config:   cfg,
		Logger:   logger,
		Service:  svc,
		Limiters: limiters,
		Metrics:  m,
		Schema:   &gqlSchema,
	})
	return &testServer{app: app, svc: svc}
}

type result struct {
	status int
	body   map[string]interface{}
	raw    string
}

func (s *testServer) do(t *testing.T, method, target, token string, body interface{}) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	res := result{status: resp.StatusCode, raw: string(raw)}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &res.body), res.raw)
	}
	return res
}

func registration(email string) map[string]string {
	return map[string]string{
		"email":           email,
		"password":        "Abc12345!",
		"confirmPassword": "Abc12345!",
		"firstName":       "Test",
		"lastName":        "User",
	}
}

func (s *testServer) register(t *testing.T, email string) (string, string) {
	t.Helper()
	res := s.do(t, "POST", "/api/auth/register", "", registration(email))
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	user := res.body["user"].(map[string]interface{})
	return user["id"].(string), res.body["token"].(string)
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, err := s.svc.EnsureAdmin(context.Background(), "admin@example.com", "Admin123!")
	require.NoError(t, err)
	res := s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "Admin123!"})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	return res.body["token"].(string)
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t, nil, false)

	res := s.do(t, "GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "OK", res.body["status"])
	assert.Contains(t, res.body, "timestamp")
	assert.Contains(t, res.body, "uptime")

	for _, target := range []string{"/api/nope", "/elsewhere"} {
		res = s.do(t, "GET", target, "", nil)
		assert.Equal(t, http.StatusNotFound, res.status)
		assert.Equal(t, "NotFound", res.body["error"])
		assert.Equal(t, "Endpoint not found", res.body["message"])
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		err        error
		status     int
		want       model.ErrorResponse
	}{
		{
			name:       "internal in production",
			production: true,
			err:        errors.New("connection reset"),
			status:     500,
			want:       model.ErrorResponse{Error: "InternalError", Message: "Internal server error"},
		},
		{
			name:   "internal in development",
			err:    errors.New("connection reset"),
			status: 500,
			want:   model.ErrorResponse{Error: "InternalError", Message: "connection reset"},
		},
		{
			name:       "fiber error",
			production: true,
			err:        fiber.NewError(fiber.StatusUnprocessableEntity, "bad json"),
			status:     400,
			want:       model.ErrorResponse{Error: "ValidationError", Message: "bad json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zaptest.NewLogger(t), tt.production)})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var got model.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil, false)

	res := s.do(t, "POST", "/api/auth/register", "", registration("Alice@Example.com"))
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	assert.Equal(t, "User registered successfully", res.body["message"])
	user := res.body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])
	for _, secret := range []string{"password", "passwordHash", "activeTokens", "emailVerificationToken", "failedLoginCount"} {
		assert.NotContains(t, user, secret)
	}

	res = s.do(t, "POST", "/api/auth/register", "", registration("alice@example.com"))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "DuplicateEmail", res.body["error"])

	login := func() string {
		res := s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "Abc12345!"})
		require.Equal(t, http.StatusOK, res.status, res.raw)
		assert.Equal(t, "Login successful", res.body["message"])
		return res.body["token"].(string)
	}
	tokenA, tokenB := login(), login()

	res = s.do(t, "GET", "/api/auth/verify", tokenA, nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["valid"])

	res = s.do(t, "PUT", "/api/auth/profile", tokenA, map[string]interface{}{
		"lastName":    "Liddell",
		"preferences": map[string]interface{}{"fontSize": 20},
	})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	profile := res.body["user"].(map[string]interface{})
	assert.Equal(t, "Liddell", profile["lastName"])
	assert.Equal(t, float64(20), profile["preferences"].(map[string]interface{})["fontSize"])

	res = s.do(t, "POST", "/api/auth/logout", tokenA, nil)
	assert.Equal(t, http.StatusOK, res.status)

	res = s.do(t, "GET", "/api/auth/profile", tokenA, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Token has been revoked", res.body["message"])

	res = s.do(t, "GET", "/api/auth/profile", tokenB, nil)
	assert.Equal(t, http.StatusOK, res.status)

	res = s.do(t, "GET", "/api/auth/session", tokenA, nil)
	assert.Equal(t, map[string]interface{}{"authenticated": false}, res.body)
	res = s.do(t, "GET", "/api/auth/session", tokenB, nil)
	assert.Equal(t, true, res.body["authenticated"])

	res = s.do(t, "GET", "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Access token required", res.body["message"])
}

func TestLoginLockedResponse(t *testing.T) {
	tests := []struct {
		name         string
		withLimiters bool
	}{
		{"no limiters", false},
		{"default limiters", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, tt.withLimiters)
			s.register(t, "bob@example.com")

			wrong := map[string]string{"email": "bob@example.com", "password": "Wrong1234!"}
			for i := 0; i < auth.MaxLoginAttempts; i++ {
				res := s.do(t, "POST", "/api/auth/login", "", wrong)
				require.Equal(t, http.StatusUnauthorized, res.status)
				assert.Equal(t, "Invalid email or password", res.body["message"])
			}

			res := s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "bob@example.com", "password": "Abc12345!"})
			assert.Equal(t, http.StatusLocked, res.status)
			assert.Equal(t, "AccountLocked", res.body["error"])

			details := res.body["details"].(map[string]interface{})
			until, err := time.Parse(time.RFC3339, details["lockedUntil"].(string))
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(auth.LockDuration), until, time.Minute)
		})
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	s := newTestServer(t, nil, false)
	_, other := s.register(t, "frank@example.com")
	res := s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "frank@example.com", "password": "Abc12345!"})
	require.Equal(t, http.StatusOK, res.status)
	current := res.body["token"].(string)

	res = s.do(t, "POST", "/api/auth/change-password", current, map[string]string{"currentPassword": "Nope1234!", "newPassword": "Newpass1!"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "ValidationError", res.body["error"])

	res = s.do(t, "POST", "/api/auth/change-password", current, map[string]string{"currentPassword": "Abc12345!", "newPassword": "Newpass1!"})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	assert.Equal(t, current, res.body["token"])

	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/api/auth/profile", current, nil).status)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/api/auth/profile", other, nil).status)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, nil, false)
	adminToken := s.adminToken(t)
	userID, userToken := s.register(t, "grace@example.com")
	otherID, otherToken := s.register(t, "heidi@example.com")

	t.Run("non admin is refused", func(t *testing.T) {
		res := s.do(t, "GET", "/api/admin/users", userToken, nil)
		assert.Equal(t, http.StatusForbidden, res.status)
		assert.Equal(t, "Insufficient permissions", res.body["message"])

		res = s.do(t, "GET", "/api/admin/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.status)
	})

	t.Run("owner or admin lookup", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.do(t, "GET", "/api/users/"+userID, userToken, nil).status)
		assert.Equal(t, http.StatusOK, s.do(t, "GET", "/api/users/"+userID, adminToken, nil).status)

		res := s.do(t, "GET", "/api/users/"+userID, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, res.status)
		assert.Equal(t, "Access denied", res.body["message"])
	})

	t.Run("list and search", func(t *testing.T) {
		res := s.do(t, "GET", "/api/admin/users?page=1&limit=2", adminToken, nil)
		require.Equal(t, http.StatusOK, res.status, res.raw)
		assert.Len(t, res.body["users"], 2)
		pagination := res.body["pagination"].(map[string]interface{})
		assert.Equal(t, float64(3), pagination["total"])
		assert.Equal(t, float64(2), pagination["pages"])

		res = s.do(t, "GET", "/api/admin/users?limit=abc", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, res.status)
		assert.Equal(t, "Invalid pagination parameters", res.body["message"])

		res = s.do(t, "GET", "/api/admin/search/users?q=g", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, res.status)

		res = s.do(t, "GET", "/api/admin/search/users?q=GRACE", adminToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		users := res.body["users"].([]interface{})
		require.Len(t, users, 1)
		assert.Equal(t, userID, users[0].(map[string]interface{})["id"])
	})

	t.Run("role and status", func(t *testing.T) {
		res := s.do(t, "PUT", "/api/admin/users/"+userID+"/role", adminToken, map[string]string{"role": "teacher"})
		require.Equal(t, http.StatusOK, res.status, res.raw)
		assert.Equal(t, "teacher", res.body["user"].(map[string]interface{})["role"])

		res = s.do(t, "PUT", "/api/admin/users/"+userID+"/role", adminToken, map[string]string{"role": "root"})
		assert.Equal(t, http.StatusBadRequest, res.status)

		res = s.do(t, "PUT", "/api/admin/users/"+otherID+"/status", adminToken, map[string]bool{"isActive": false})
		require.Equal(t, http.StatusOK, res.status, res.raw)
		assert.Equal(t, "User deactivated successfully", res.body["message"])

		res = s.do(t, "GET", "/api/auth/profile", otherToken, nil)
		assert.Equal(t, http.StatusUnauthorized, res.status)
		assert.Equal(t, "AccountDeactivated", res.body["error"])

		res = s.do(t, "PUT", "/api/admin/users/"+otherID+"/status", adminToken, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, res.status)
	})

	t.Run("stats", func(t *testing.T) {
		res := s.do(t, "GET", "/api/admin/stats", adminToken, nil)
		require.Equal(t, http.StatusOK, res.status, res.raw)
		users := res.body["users"].(map[string]interface{})
		assert.Equal(t, float64(3), users["total"])
		assert.Equal(t, float64(1), users["inactive"])
		system := res.body["system"].(map[string]interface{})
		assert.NotEmpty(t, system["goVersion"])
	})

	t.Run("force logout and delete", func(t *testing.T) {
		res := s.do(t, "POST", "/api/admin/users/"+userID+"/logout-all", adminToken, nil)
		require.Equal(t, http.StatusOK, res.status, res.raw)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/api/auth/profile", userToken, nil).status)

		res = s.do(t, "DELETE", "/api/admin/users/"+userID, adminToken, nil)
		require.Equal(t, http.StatusOK, res.status, res.raw)
		assert.Equal(t, "User deleted successfully", res.body["message"])

		res = s.do(t, "GET", "/api/admin/users/"+userID, adminToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, false, res.body["user"].(map[string]interface{})["isActive"])

		res = s.do(t, "DELETE", "/api/admin/users/missing", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, res.status)
	})
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.AuthRateLimitMax = 2 }, true)
	s.register(t, "ivan@example.com")

	good := map[string]string{"email": "ivan@example.com", "password": "Abc12345!"}
	bad := map[string]string{"email": "ivan@example.com", "password": "Wrong1234!"}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, s.do(t, "POST", "/api/auth/login", "", good).status, "successful logins are not counted")
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusUnauthorized, s.do(t, "POST", "/api/auth/login", "", bad).status)
	}

	res := s.do(t, "POST", "/api/auth/login", "", good)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, "TooManyRequests", res.body["error"])
	assert.Contains(t, res.body["details"], "retryAfter")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, false)
	s.do(t, "GET", "/api/health", "", nil)

	res := s.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.raw, `echolearn_http_requests_total{method="GET",path="/api/health",status="200"} 1`)
}

func TestGraphQLEndpoint(t *testing.T) {
	s := newTestServer(t, nil, false)
	userID, token := s.register(t, "nina@example.com")

	res := s.do(t, "POST", "/api/graphql", token, map[string]string{"query": "{ me { id email } }"})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	assert.Equal(t, map[string]interface{}{
		"me": map[string]interface{}{"id": userID, "email": "nina@example.com"},
	}, res.body["data"])

	res = s.do(t, "POST", "/api/graphql", "", map[string]string{"query": "{ me { id } }"})
	require.Equal(t, http.StatusOK, res.status)
	errs := res.body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "Authentication required", errs[0].(map[string]interface{})["message"])

	res = s.do(t, "POST", "/api/graphql", token, map[string]string{"query": "  "})
	require.Equal(t, http.StatusBadRequest, res.status)
	errs = res.body["errors"].([]interface{})
	assert.Equal(t, "Query is required", errs[0].(map[string]interface{})["message"])
}
