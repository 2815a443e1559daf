package auth

import (
	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/gofiber/fiber/v2"
)

// ============================================================================
// AUTH HANDLERS
// ============================================================================

func invalidBody(err error) error {
	return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
}

// Register handles public account creation
func Register(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(err)
		}

		user, token, err := svc.Register(c.UserContext(), req, c.IP())
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(model.AuthResponse{
			Message: "User registered successfully",
			User:    user.Safe(),
			Token:   token,
		})
	}
}

// Login handles user login and returns a bearer token
func Login(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(err)
		}

		user, token, err := svc.Login(c.UserContext(), req, c.IP())
		if err != nil {
			return err
		}

		return c.JSON(model.AuthResponse{
			Message: "Login successful",
			User:    user.Safe(),
			Token:   token,
		})
	}
}

// Logout revokes the token used for the request
func Logout(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Logout(c.UserContext(), CurrentUser(c), CurrentToken(c)); err != nil {
			return err
		}
		return c.JSON(model.MessageResponse{Message: "Logout successful"})
	}
}

// LogoutAll revokes every token of the caller
func LogoutAll(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.LogoutAll(c.UserContext(), CurrentUser(c)); err != nil {
			return err
		}
		return c.JSON(model.MessageResponse{Message: "Logged out from all devices successfully"})
	}
}

// GetProfile returns the caller's safe view
func GetProfile() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(model.UserResponse{User: CurrentUser(c).Safe()})
	}
}

// UpdateProfile changes names and merges preferences
func UpdateProfile(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(err)
		}

		user := CurrentUser(c)
		if err := svc.UpdateProfile(c.UserContext(), user, req); err != nil {
			return err
		}
		return c.JSON(model.UserResponse{
			Message: "Profile updated successfully",
			User:    user.Safe(),
		})
	}
}

// Verify reports that the presented token is live
func Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"valid": true,
			"user":  CurrentUser(c).Safe(),
		})
	}
}

// ChangePassword replaces the caller's password and keeps only the current session
func ChangePassword(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ChangePasswordRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(err)
		}

		token := CurrentToken(c)
		if err := svc.ChangePassword(c.UserContext(), CurrentUser(c), token, req); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "Password changed successfully",
			"token":   token,
		})
	}
}

// Session reports whether the request carries a valid session. It never fails.
func Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.JSON(fiber.Map{"authenticated": false})
		}
		return c.JSON(fiber.Map{
			"authenticated": true,
			"user":          user.Safe(),
		})
	}
}

// GetUser returns a user by id. Mount it behind RequireOwnershipOrAdmin.
func GetUser(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := svc.GetUser(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}
		return c.JSON(model.UserResponse{User: user.Safe()})
	}
}
