// Package restapi provides the main router for REST API endpoints.
package restapi

import (
	"github.com/echolearn/echolearn-backend/internal/ratelimit"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/echolearn/echolearn-backend/restapi/modules/admin"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

func passThrough(c *fiber.Ctx) error { return c.Next() }

// SetupRoutes configures all REST API routes under /api. limiters may be nil
// to run without throttling; schema may be nil to leave out /api/graphql.
func SetupRoutes(app *fiber.App, svc *auth.Service, limiters *ratelimit.Limiters, schema *graphql.Schema) {
	general, login, register := passThrough, passThrough, passThrough
	if limiters != nil {
		general, login, register = limiters.General, limiters.Login, limiters.Register
	}

	requireAuth := auth.RequireAuth(svc)

	// API Group /api
	api := app.Group("/api", general)

	// GraphQL Route - read-only account queries
	if schema != nil {
		api.Post("/graphql", auth.OptionalAuth(svc), GraphQLHandler(*schema))
	}

	// Auth Routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", register, auth.Register(svc))
	authGroup.Post("/login", login, ratelimit.RenderErrors, auth.Login(svc))
	authGroup.Post("/logout", requireAuth, auth.Logout(svc))
	authGroup.Post("/logout-all", requireAuth, auth.LogoutAll(svc))
	authGroup.Get("/profile", requireAuth, auth.GetProfile())
	authGroup.Put("/profile", requireAuth, auth.UpdateProfile(svc))
	authGroup.Get("/verify", requireAuth, auth.Verify())
	authGroup.Post("/change-password", requireAuth, auth.ChangePassword(svc))
	authGroup.Get("/session", auth.OptionalAuth(svc), auth.Session())

	// User lookup (owner or admin)
	api.Get("/users/:userId", requireAuth, auth.RequireOwnershipOrAdmin("userId"), auth.GetUser(svc))

	// User Management (Admin)
	adminGroup := api.Group("/admin", requireAuth, auth.RequireRole(model.RoleAdmin))
	adminGroup.Get("/users", admin.ListUsers(svc))
	adminGroup.Get("/users/:userId", admin.GetUser(svc))
	adminGroup.Put("/users/:userId/role", admin.UpdateRole(svc))
	adminGroup.Put("/users/:userId/status", admin.UpdateStatus(svc))
	adminGroup.Delete("/users/:userId", admin.DeleteUser(svc))
	adminGroup.Post("/users/:userId/logout-all", admin.ForceLogout(svc))
	adminGroup.Get("/search/users", admin.SearchUsers(svc))
	adminGroup.Get("/stats", admin.Stats(svc))
}
