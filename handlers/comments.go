// handlers/comments.go
package handlers

import (
	"taskhub/middleware"

	"github.com/gofiber/fiber/v2"
)

type CommentRequest struct {
	Content string `json:"content"`
}

// GET /api/tasks/:id/comments
func (h *Handlers) ListComments(c *fiber.Ctx) error {
	comments, err := h.Comments.List(c.UserContext(), middleware.Caps(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, comments)
}

// POST /api/tasks/:id/comments
func (h *Handlers) AddComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.Comments.Add(c.UserContext(), middleware.Caps(c), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return created(c, comment)
}

// PUT /api/comments/:id
func (h *Handlers) UpdateComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.Comments.Update(c.UserContext(), middleware.Caps(c), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return ok(c, comment)
}

// DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *fiber.Ctx) error {
	if err := h.Comments.Delete(c.UserContext(), middleware.Caps(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Comment deleted"})
}
