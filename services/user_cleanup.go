// services/user_cleanup.go - hard deletion of a user account
package services

import (
	"taskhub/models"

	"gorm.io/gorm"
)

// purgeUser deletes the user inside tx together with the tasks they created
// (and those tasks' history and comments). Assignments to the user are
// cleared and reports of the user lose their manager.
func purgeUser(tx *gorm.DB, userID string) error {
	var created []string
	if err := tx.Model(&models.Task{}).Where("creator_id = ?", userID).Pluck("id", &created).Error; err != nil {
		return err
	}
	if _, err := deleteTasks(tx, created); err != nil {
		return err
	}

	steps := []func() error{
		func() error {
			return tx.Model(&models.Task{}).Where("assigned_to_id = ?", userID).
				Update("assigned_to_id", gorm.Expr("NULL")).Error
		},
		func() error {
			return tx.Model(&models.User{}).Where("manager_id = ?", userID).
				Update("manager_id", gorm.Expr("NULL")).Error
		},
		func() error { return tx.Where("author_id = ?", userID).Delete(&models.Comment{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&models.TeamMember{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&models.Membership{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&models.Notification{}).Error },
		func() error { return tx.Where("id = ?", userID).Delete(&models.User{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
