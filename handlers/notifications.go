// handlers/notifications.go - the caller's notification inbox
package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// GET /api/notifications?unread=true
func (h *Handlers) ListNotifications(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	page, err := h.Notifications.List(c.UserContext(), id, c.QueryBool("unread", false), c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ok(c, page)
}

// GET /api/notifications/unread-count
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	count, err := h.Notifications.UnreadCount(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": count})
}

// PUT /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	n, err := h.Notifications.MarkRead(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, n)
}

// PUT /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	updated, err := h.Notifications.MarkAllRead(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"updated": updated})
}

// DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Notifications.Delete(c.UserContext(), id, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Notification deleted"})
}
