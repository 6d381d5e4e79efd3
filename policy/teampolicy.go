package policy

import "taskhub/models"

// CanManageTeamMembership reports whether the actor's team membership allows
// adding, removing or re-roling members. actor is nil when the caller is not
// on the team.
func CanManageTeamMembership(actor *models.TeamMember) bool {
	return actor != nil && actor.Role == models.TeamRoleLeader
}

// CanManageOrgMembers reports whether the org membership allows managing members.
func CanManageOrgMembers(actor *models.Membership) bool {
	return actor != nil && actor.Role.CanManageMembers()
}

// CanEditComment restricts comment edits and deletes to the author.
func CanEditComment(c Capabilities, comment *models.Comment) bool {
	return comment.AuthorID == c.UserID
}
