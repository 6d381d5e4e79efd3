// handlers/organizations.go - organizations and their members
package handlers

import (
	"strings"

	"taskhub/models"

	"github.com/gofiber/fiber/v2"
)

type CreateOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddOrgMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// POST /api/organizations
func (h *Handlers) CreateOrganization(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req CreateOrganizationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	org, err := h.Organizations.Create(c.UserContext(), req.Name, req.Description, id)
	if err != nil {
		return err
	}
	return created(c, org)
}

// GET /api/organizations
func (h *Handlers) ListOrganizations(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	orgs, err := h.Organizations.ListForUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, orgs)
}

// GET /api/organizations/:id
func (h *Handlers) GetOrganization(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	org, err := h.Organizations.Get(c.UserContext(), c.Params("id"), id)
	if err != nil {
		return err
	}
	return ok(c, org)
}

// GET /api/organizations/:id/members
func (h *Handlers) ListOrganizationMembers(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	members, err := h.Organizations.ListMembers(c.UserContext(), c.Params("id"), id)
	if err != nil {
		return err
	}
	return ok(c, members)
}

// POST /api/organizations/:id/members
func (h *Handlers) AddOrganizationMember(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req AddOrgMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	role := models.OrgRole(strings.ToUpper(strings.TrimSpace(req.Role)))
	member, err := h.Organizations.AddMember(c.UserContext(), c.Params("id"), id, req.Email, role)
	if err != nil {
		return err
	}
	return created(c, member)
}

// DELETE /api/organizations/:id/members/:userId
func (h *Handlers) RemoveOrganizationMember(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Organizations.RemoveMember(c.UserContext(), c.Params("id"), id, c.Params("userId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Member removed"})
}
