// handlers/auth.go - registration, login and the caller's own account
package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register creates an account and returns a token for it.
// POST /api/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Auth.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	return created(c, result)
}

// Login exchanges credentials for a token.
// POST /api/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, result)
}

// GET /api/users/me
func (h *Handlers) GetCurrentUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := h.Auth.Me(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// PUT /api/users/me
func (h *Handlers) UpdateCurrentUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.Auth.UpdateProfile(c.UserContext(), id, req.Name, req.Email)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// PUT /api/users/me/password
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.Auth.ChangePassword(c.UserContext(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password updated"})
}

// DeleteCurrentUser removes the caller's account and the tasks they created.
// DELETE /api/users/me
func (h *Handlers) DeleteCurrentUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Auth.DeleteAccount(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Account deleted"})
}
