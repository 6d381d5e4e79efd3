// handlers/handlers.go - HTTP handlers for the task API
package handlers

import (
	"errors"

	"taskhub/apperr"
	"taskhub/middleware"
	"taskhub/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handlers holds the services the REST endpoints delegate to.
type Handlers struct {
	Auth          *services.AuthService
	Tasks         *services.TaskService
	Bulk          *services.BulkService
	Comments      *services.CommentService
	Notifications *services.NotificationService
	Organizations *services.OrganizationService
	Teams         *services.TeamService
	Analytics     *services.AnalyticsService
	AI            *services.AIService
	Log           *zap.Logger
}

// ErrorHandler renders every error returned by a handler as
// {success:false, error}. Business errors keep their message; unexpected
// errors are logged and, in production, replaced by a generic message.
func ErrorHandler(log *zap.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var appErr *apperr.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			code = appErr.Status()
			message = appErr.Message
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		default:
			message = err.Error()
		}

		if code >= fiber.StatusInternalServerError {
			if log != nil {
				log.Error("request failed",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Error(err))
			}
			// Don't expose internal errors in production
			if production {
				message = "An error occurred. Please try again later."
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}

// Health reports liveness.
// GET /health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func userID(c *fiber.Ctx) (string, error) {
	return middleware.GetUserID(c)
}
