// Package policy defines who may see and change what. List filtering,
// single-task mutation, bulk operations, comments and the assistant layer all
// evaluate these functions rather than checking roles inline.
package policy

import "taskhub/models"

// Capabilities is what a request is allowed to rely on about its caller.
// OrganizationID is the active organization context; nil means individual mode.
// TeamIDs and LedTeamIDs are limited to teams of the active organization.
type Capabilities struct {
	UserID         string
	Email          string
	Role           models.Role
	OrganizationID *string
	OrgRole        models.OrgRole
	TeamIDs        []string
	LedTeamIDs     []string
}

func (c Capabilities) IndividualMode() bool {
	return c.OrganizationID == nil
}

func (c Capabilities) InTeam(teamID string) bool {
	return contains(c.TeamIDs, teamID)
}

func (c Capabilities) LeadsTeam(teamID string) bool {
	return contains(c.LedTeamIDs, teamID)
}

// InOrganization reports whether orgID is the caller's active organization.
func (c Capabilities) InOrganization(orgID *string) bool {
	return orgID != nil && c.OrganizationID != nil && *orgID == *c.OrganizationID
}

// HasMinRole is the minimum-role gate used for admin and bulk surfaces.
func HasMinRole(c Capabilities, min models.Role) bool {
	return c.Role.AtLeast(min)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
