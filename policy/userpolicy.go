package policy

import "taskhub/models"

// CanChangeRole reports whether actor may move target to newRole. Nobody
// changes their own role, and only a SUPER_ADMIN may grant or take away the
// ADMIN and SUPER_ADMIN roles.
func CanChangeRole(actor Capabilities, target *models.User, newRole models.Role) bool {
	if actor.UserID == target.ID {
		return false
	}
	if target.Role.AtLeast(models.RoleAdmin) || newRole.AtLeast(models.RoleAdmin) {
		return actor.Role == models.RoleSuperAdmin
	}
	return actor.Role.AtLeast(models.RoleAdmin)
}

// CanSuspend forbids suspending yourself or a SUPER_ADMIN.
func CanSuspend(actor Capabilities, target *models.User) bool {
	return actor.UserID != target.ID && target.Role != models.RoleSuperAdmin
}

// CanDeleteUser follows the same rule as CanSuspend.
func CanDeleteUser(actor Capabilities, target *models.User) bool {
	return CanSuspend(actor, target)
}
