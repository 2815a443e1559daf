package auth

import (
	"context"
	"strings"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the gate
const (
	localUser  = "user"
	localToken = "token"
)

type contextKey string

// UserKey carries the authenticated *model.User in a context.Context for
// handlers that leave Fiber, such as GraphQL resolvers.
const UserKey contextKey = "user"

// WithUser returns a copy of ctx carrying u
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// UserFromContext returns the user stored by WithUser, or nil
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(UserKey).(*model.User)
	return u
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the user attached by RequireAuth or OptionalAuth
func CurrentUser(c *fiber.Ctx) *model.User {
	u, _ := c.Locals(localUser).(*model.User)
	return u
}

// CurrentToken returns the bearer token of the authenticated request
func CurrentToken(c *fiber.Ctx) string {
	t, _ := c.Locals(localToken).(string)
	return t
}

// RequireAuth middleware validates the bearer token and blocks guests
func RequireAuth(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		user, err := svc.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		// Store user info in context
		c.Locals(localUser, user)
		c.Locals(localToken, token)
		return c.Next()
	}
}

// OptionalAuth identifies the user if a valid token is present but does not
// block guests.
func OptionalAuth(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if user := svc.OptionalUser(c.UserContext(), token); user != nil {
			c.Locals(localUser, user)
			c.Locals(localToken, token)
		}
		return c.Next()
	}
}

// RequireRole middleware checks if user has one of the required roles
func RequireRole(allowedRoles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Unauthenticated("Authentication required")
		}
		if !user.HasRole(allowedRoles...) {
			return apperr.Forbidden("Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireOwnershipOrAdmin lets admins through, and otherwise requires the
// owner id named by field, from the route params or the JSON body, to be the
// authenticated user.
func RequireOwnershipOrAdmin(field string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Unauthenticated("Authentication required")
		}
		if user.IsAdmin() {
			return c.Next()
		}

		owner := c.Params(field)
		if owner == "" && len(c.Body()) > 0 {
			var body map[string]interface{}
			if err := c.BodyParser(&body); err == nil {
				owner, _ = body[field].(string)
			}
		}
		if owner != "" && owner == user.ID {
			return c.Next()
		}
		return apperr.Forbidden("Access denied")
	}
}
