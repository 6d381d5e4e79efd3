// handlers/teams.go - Team HTTP handlers
package handlers

import (
	"strings"

	"taskhub/models"

	"github.com/gofiber/fiber/v2"
)

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type TeamMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func teamRole(s string) models.TeamRole {
	return models.TeamRole(strings.ToUpper(strings.TrimSpace(s)))
}

// ================== TEAM CRUD ENDPOINTS ==================

// CreateTeam creates a team in the organization with the caller as leader.
// POST /api/organizations/:orgId/teams
func (h *Handlers) CreateTeam(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req CreateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.Teams.CreateTeam(c.UserContext(), c.Params("orgId"), req.Name, req.Description, id)
	if err != nil {
		return err
	}
	return created(c, team)
}

// ListTeams returns the organization's teams, or only the caller's with ?mine=true.
// GET /api/organizations/:orgId/teams
func (h *Handlers) ListTeams(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var teams []models.Team
	if c.QueryBool("mine", false) {
		teams, err = h.Teams.ListUserTeams(c.UserContext(), c.Params("orgId"), id)
	} else {
		teams, err = h.Teams.ListOrganizationTeams(c.UserContext(), c.Params("orgId"), id)
	}
	if err != nil {
		return err
	}
	return ok(c, teams)
}

// GET /api/teams/:id
func (h *Handlers) GetTeam(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	team, err := h.Teams.GetTeamByID(c.UserContext(), c.Params("id"), id)
	if err != nil {
		return err
	}
	return ok(c, team)
}

// PUT /api/teams/:id
func (h *Handlers) UpdateTeam(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req UpdateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.Teams.UpdateTeam(c.UserContext(), c.Params("id"), id, req.Name, req.Description)
	if err != nil {
		return err
	}
	return ok(c, team)
}

// DELETE /api/teams/:id
func (h *Handlers) DeleteTeam(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Teams.DeleteTeam(c.UserContext(), c.Params("id"), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Team deleted"})
}

// ================== MEMBERSHIP ENDPOINTS ==================

// GET /api/teams/:id/members
func (h *Handlers) GetTeamMembers(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	members, err := h.Teams.GetTeamMembers(c.UserContext(), c.Params("id"), id)
	if err != nil {
		return err
	}
	return ok(c, members)
}

// POST /api/teams/:id/members
func (h *Handlers) AddTeamMember(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req TeamMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	member, err := h.Teams.AddMember(c.UserContext(), c.Params("id"), id, req.UserID, teamRole(req.Role))
	if err != nil {
		return err
	}
	return created(c, member)
}

// PUT /api/teams/:id/members/:userId
func (h *Handlers) ChangeTeamMemberRole(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req TeamMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	member, err := h.Teams.ChangeMemberRole(c.UserContext(), c.Params("id"), id, c.Params("userId"), teamRole(req.Role))
	if err != nil {
		return err
	}
	return ok(c, member)
}

// DELETE /api/teams/:id/members/:userId
func (h *Handlers) RemoveTeamMember(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Teams.RemoveMember(c.UserContext(), c.Params("id"), id, c.Params("userId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Member removed"})
}

// POST /api/teams/:id/leave
func (h *Handlers) LeaveTeam(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Teams.LeaveTeam(c.UserContext(), c.Params("id"), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Left team"})
}
