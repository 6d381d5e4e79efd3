// Package admin serves the administrator endpoints under /api/admin.
package admin

import (
	"strings"

	"taskhub/apperr"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/services"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Admin *services.AdminService
	Audit *services.AuditService
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type SetManagerRequest struct {
	ManagerID *string `json:"managerId"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

func actor(c *fiber.Ctx) services.AdminActor {
	return services.AdminActor{
		Capabilities: middleware.Caps(c),
		IP:           c.IP(),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
	}
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// GetUsers returns users with pagination
// GET /api/admin/users?search=&role=&active=
func (h *Handlers) GetUsers(c *fiber.Ctx) error {
	filter := services.UserFilter{
		Search: c.Query("search"),
		Role:   models.Role(strings.ToUpper(c.Query("role"))),
	}
	if v := c.Query("active"); v != "" {
		active := c.QueryBool("active")
		filter.Active = &active
	}
	page, err := h.Admin.ListUsers(c.UserContext(), filter, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ok(c, page)
}

// GET /api/admin/users/:id
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	user, err := h.Admin.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, user)
}

// POST /api/admin/users
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	role := models.RoleUser
	if req.Role != "" {
		r, valid := models.ParseRole(req.Role)
		if !valid {
			return apperr.BadRequest("Invalid role")
		}
		role = r
	}
	user, err := h.Admin.CreateUser(c.UserContext(), actor(c), services.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
}

// PUT /api/admin/users/:id/role
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	role, valid := models.ParseRole(req.Role)
	if !valid {
		return apperr.BadRequest("Invalid role")
	}
	user, err := h.Admin.UpdateRole(c.UserContext(), actor(c), c.Params("id"), role)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// POST /api/admin/users/:id/suspend
func (h *Handlers) SuspendUser(c *fiber.Ctx) error {
	user, err := h.Admin.SetActive(c.UserContext(), actor(c), c.Params("id"), false)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// POST /api/admin/users/:id/activate
func (h *Handlers) ActivateUser(c *fiber.Ctx) error {
	user, err := h.Admin.SetActive(c.UserContext(), actor(c), c.Params("id"), true)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// SetManager assigns or, with a null managerId, clears the user's manager.
// PUT /api/admin/users/:id/manager
func (h *Handlers) SetManager(c *fiber.Ctx) error {
	var req SetManagerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ManagerID != nil && strings.TrimSpace(*req.ManagerID) == "" {
		req.ManagerID = nil
	}
	user, err := h.Admin.SetManager(c.UserContext(), actor(c), c.Params("id"), req.ManagerID)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// POST /api/admin/users/:id/reset-password
func (h *Handlers) ResetUserPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.Admin.ResetPassword(c.UserContext(), actor(c), c.Params("id"), req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password reset successfully"})
}

// DELETE /api/admin/users/:id
func (h *Handlers) DeleteUser(c *fiber.Ctx) error {
	if err := h.Admin.DeleteUser(c.UserContext(), actor(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted successfully"})
}
