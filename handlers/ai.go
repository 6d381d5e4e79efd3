// handlers/ai.go - function calls issued by the assistant
package handlers

import (
	"taskhub/middleware"
	"taskhub/services"

	"github.com/gofiber/fiber/v2"
)

type ExecuteFunctionRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// GET /api/ai/functions
func (h *Handlers) ListFunctions(c *fiber.Ctx) error {
	return ok(c, h.AI.Functions())
}

// ExecuteFunction runs one function on behalf of the caller. The result
// always comes back with status 200; failures are reported in its error field.
// POST /api/ai/execute
func (h *Handlers) ExecuteFunction(c *fiber.Ctx) error {
	var req ExecuteFunctionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	caps := middleware.Caps(c)
	ac := services.AIContext{
		UserID:         caps.UserID,
		OrganizationID: caps.OrganizationID,
		TeamIDs:        caps.TeamIDs,
		Role:           caps.Role,
	}
	return c.JSON(h.AI.ExecuteFunction(c.UserContext(), req.Name, req.Arguments, ac))
}
