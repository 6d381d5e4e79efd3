package admin

import (
	"time"

	"taskhub/apperr"
	"taskhub/services"

	"github.com/gofiber/fiber/v2"
)

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.BadRequest("Invalid " + key + " timestamp")
	}
	return &t, nil
}

// GetAuditLogs lists audit entries, newest first.
// GET /api/admin/audit-logs?entityType=&entityId=&actorId=&action=&from=&to=
func (h *Handlers) GetAuditLogs(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return err
	}
	filter := services.AuditFilter{
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		ActorID:    c.Query("actorId"),
		Action:     c.Query("action"),
		From:       from,
		To:         to,
	}
	page, err := h.Audit.GetLogs(c.UserContext(), filter, c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return ok(c, page)
}

// GET /api/admin/audit-logs/:entityType/:entityId
func (h *Handlers) GetEntityHistory(c *fiber.Ctx) error {
	logs, err := h.Audit.GetEntityHistory(c.UserContext(), c.Params("entityType"), c.Params("entityId"), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return ok(c, logs)
}
