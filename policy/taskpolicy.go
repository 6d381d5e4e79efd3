package policy

import (
	"taskhub/models"

	"gorm.io/gorm"
)

// CanViewTask is the single-task form of VisibleTasks. Individual mode sees
// only individual tasks the caller created or is assigned; organization mode
// sees tasks of the active organization through any of the four grants.
func CanViewTask(c Capabilities, t *models.Task) bool {
	if c.IndividualMode() {
		return t.OrganizationID == nil && (t.CreatorID == c.UserID || isAssignee(c, t))
	}
	if !c.InOrganization(t.OrganizationID) {
		return false
	}
	if isAssignee(c, t) {
		return true
	}
	switch t.Visibility {
	case models.VisibilityPrivate:
		return t.CreatorID == c.UserID
	case models.VisibilityOrganization:
		return true
	case models.VisibilityTeam:
		return t.TeamID != nil && c.InTeam(*t.TeamID)
	}
	return false
}

// CanMutateTask allows the creator, the assignee, or a leader of the task's team.
func CanMutateTask(c Capabilities, t *models.Task) bool {
	if t.CreatorID == c.UserID || isAssignee(c, t) {
		return true
	}
	return t.TeamID != nil && c.InOrganization(t.OrganizationID) && c.LeadsTeam(*t.TeamID)
}

// CanDeleteTask restricts single-task deletion to the creator.
func CanDeleteTask(c Capabilities, t *models.Task) bool {
	return t.CreatorID == c.UserID
}

// VisibleTasks is the query form of CanViewTask, scoped to the active
// organization (or to individual-mode tasks when there is none).
func VisibleTasks(c Capabilities) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c.IndividualMode() {
			return db.Where("tasks.organization_id IS NULL").
				Where("(tasks.creator_id = ? OR tasks.assigned_to_id = ?)", c.UserID, c.UserID)
		}

		db = db.Where("tasks.organization_id = ?", *c.OrganizationID)
		if len(c.TeamIDs) == 0 {
			return db.Where(
				"((tasks.visibility = ? AND tasks.creator_id = ?) OR tasks.visibility = ? OR tasks.assigned_to_id = ?)",
				models.VisibilityPrivate, c.UserID,
				models.VisibilityOrganization,
				c.UserID,
			)
		}
		return db.Where(
			"((tasks.visibility = ? AND tasks.creator_id = ?) OR tasks.visibility = ? OR (tasks.visibility = ? AND tasks.team_id IN ?) OR tasks.assigned_to_id = ?)",
			models.VisibilityPrivate, c.UserID,
			models.VisibilityOrganization,
			models.VisibilityTeam, c.TeamIDs,
			c.UserID,
		)
	}
}

func isAssignee(c Capabilities, t *models.Task) bool {
	return t.AssignedToID != nil && *t.AssignedToID == c.UserID
}
