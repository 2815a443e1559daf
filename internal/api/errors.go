package api

import (
	"errors"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders every error returned by a handler as a
// model.ErrorResponse. Internal failures are logged in full; the client gets
// the generic message in production and the error text otherwise.
func ErrorHandler(logger *zap.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
		case errors.As(err, &fiberErr):
			appErr = fromFiberError(fiberErr)
		default:
			appErr = apperr.Internal(err)
		}

		resp := model.ErrorResponse{
			Error:   string(appErr.Kind),
			Message: appErr.Message,
			Details: appErr.Details,
		}

		if appErr.Kind == apperr.KindInternal {
			logger.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			if !production {
				resp.Message = err.Error()
			}
		}

		return c.Status(appErr.Status()).JSON(resp)
	}
}

func fromFiberError(e *fiber.Error) *apperr.Error {
	switch e.Code {
	case fiber.StatusNotFound:
		return apperr.NotFound("Endpoint not found")
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return apperr.Wrap(apperr.KindValidation, e.Message, e)
	case fiber.StatusUnauthorized:
		return apperr.Unauthenticated(e.Message)
	case fiber.StatusForbidden:
		return apperr.Forbidden(e.Message)
	case fiber.StatusTooManyRequests:
		return apperr.New(apperr.KindTooManyRequests, e.Message)
	case fiber.StatusMethodNotAllowed:
		return apperr.NotFound("Endpoint not found")
	}
	return apperr.Internal(e)
}
