// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"taskhub/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates every table and secondary index.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Membership{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.TaskHistory{},
		&models.Comment{},
		&models.Notification{},
		&models.AuditLog{},
		&models.AIInteractionLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	log.Info("migrations completed")
	return nil
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_tasks_org_visibility ON tasks(organization_id, visibility)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_task_histories_created ON task_histories(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_ai_logs_created ON ai_interaction_logs(created_at DESC)",
}

func createIndexes(db *gorm.DB) error {
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
