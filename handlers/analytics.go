// handlers/analytics.go
package handlers

import (
	"taskhub/middleware"

	"github.com/gofiber/fiber/v2"
)

// GET /api/analytics/dashboard
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	dashboard, err := h.Analytics.Dashboard(c.UserContext(), middleware.Caps(c))
	if err != nil {
		return err
	}
	return ok(c, dashboard)
}

// GET /api/analytics/trends?days=30
func (h *Handlers) Trends(c *fiber.Ctx) error {
	points, err := h.Analytics.Trends(c.UserContext(), middleware.Caps(c), c.QueryInt("days", 0))
	if err != nil {
		return err
	}
	return ok(c, points)
}
