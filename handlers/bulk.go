// handlers/bulk.go - bulk task operations
package handlers

import (
	"taskhub/middleware"
	"taskhub/services"

	"github.com/gofiber/fiber/v2"
)

type BulkPreviewRequest struct {
	TaskIDs []string `json:"taskIds"`
}

// BulkTasks applies one action to many tasks. Missing ids are reported in
// the result and do not fail the request.
// POST /api/tasks/bulk
func (h *Handlers) BulkTasks(c *fiber.Ctx) error {
	var req services.BulkRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Bulk.Execute(c.UserContext(), middleware.AuditActor(c), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// POST /api/tasks/bulk/preview
func (h *Handlers) PreviewBulkTasks(c *fiber.Ctx) error {
	var req BulkPreviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	preview, err := h.Bulk.Preview(c.UserContext(), req.TaskIDs)
	if err != nil {
		return err
	}
	return ok(c, preview)
}
