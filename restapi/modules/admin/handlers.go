// Package admin implements the REST API handlers for account administration.
package admin

import (
	"runtime"
	"strings"
	"time"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/echolearn/echolearn-backend/util"
	"github.com/gofiber/fiber/v2"
)

// MinSearchLength is the shortest accepted search query
const MinSearchLength = 2

var started = time.Now()

// RoleRequest is the body of PUT /admin/users/:userId/role
type RoleRequest struct {
	Role model.Role `json:"role"`
}

// StatusRequest is the body of PUT /admin/users/:userId/status
type StatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// SystemInfo describes the running process in the stats response
type SystemInfo struct {
	Uptime     float64 `json:"uptime"`
	GoVersion  string  `json:"goVersion"`
	Goroutines int     `json:"goroutines"`
	HeapAlloc  uint64  `json:"heapAllocBytes"`
}

// StatsResponse is returned by GET /admin/stats
type StatsResponse struct {
	Users  model.UserStats `json:"users"`
	System SystemInfo      `json:"system"`
}

func listPage(c *fiber.Ctx, svc *auth.Service, query string) error {
	page, limit, err := util.ParsePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "Invalid pagination parameters")
	}

	users, total, err := svc.ListUsers(c.UserContext(), store.ListOptions{
		Offset: util.Offset(page, limit),
		Limit:  limit,
		Query:  query,
	})
	if err != nil {
		return err
	}

	return c.JSON(model.UserListResponse{
		Users: model.SafeUsers(users),
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: util.TotalPages(total, limit),
		},
	})
}

// ListUsers returns a page of all users, newest first
func ListUsers(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listPage(c, svc, "")
	}
}

// SearchUsers returns a page of users whose email or name contains q
func SearchUsers(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if util.IsEmpty(q) || len([]rune(q)) < MinSearchLength {
			return apperr.New(apperr.KindValidation, "Search query must be at least 2 characters long")
		}
		return listPage(c, svc, q)
	}
}

// GetUser returns a single user
func GetUser(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := svc.GetUser(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(model.UserResponse{User: user.Safe()})
	}
}

// UpdateRole changes the role of another user
func UpdateRole(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RoleRequest
		if err := c.BodyParser(&req); err != nil {
			return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
		}

		user, err := svc.SetRole(c.UserContext(), auth.CurrentUser(c), c.Params("userId"), req.Role)
		if err != nil {
			return err
		}
		return c.JSON(model.UserResponse{
			Message: "User role updated successfully",
			User:    user.Safe(),
		})
	}
}

// UpdateStatus activates or deactivates another user
func UpdateStatus(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req StatusRequest
		if err := c.BodyParser(&req); err != nil {
			return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
		}
		if req.IsActive == nil {
			return apperr.New(apperr.KindValidation, "Validation failed").
				WithDetails(map[string]string{"isActive": "must be a boolean"})
		}

		user, err := svc.SetStatus(c.UserContext(), auth.CurrentUser(c), c.Params("userId"), *req.IsActive)
		if err != nil {
			return err
		}

		message := "User deactivated successfully"
		if user.IsActive {
			message = "User activated successfully"
		}
		return c.JSON(model.UserResponse{Message: message, User: user.Safe()})
	}
}

// DeleteUser soft-deletes another user
func DeleteUser(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Deactivate(c.UserContext(), auth.CurrentUser(c), c.Params("userId")); err != nil {
			return err
		}
		return c.JSON(model.MessageResponse{Message: "User deleted successfully"})
	}
}

// ForceLogout revokes every session of another user
func ForceLogout(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.ForceLogout(c.UserContext(), auth.CurrentUser(c), c.Params("userId")); err != nil {
			return err
		}
		return c.JSON(model.MessageResponse{Message: "User logged out from all devices successfully"})
	}
}

// Stats returns account counts and process information
func Stats(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.UserContext())
		if err != nil {
			return err
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		return c.JSON(StatsResponse{
			Users: stats,
			System: SystemInfo{
				Uptime:     time.Since(started).Seconds(),
				GoVersion:  runtime.Version(),
				Goroutines: runtime.NumGoroutine(),
				HeapAlloc:  mem.HeapAlloc,
			},
		})
	}
}
