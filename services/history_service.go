// services/history_service.go - per-task transition log
package services

import (
	"context"
	"fmt"

	"taskhub/logging"
	"taskhub/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HistoryService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewHistoryService(db *gorm.DB, log *zap.Logger) *HistoryService {
	return &HistoryService{db: db, log: logging.OrNop(log)}
}

// Record appends entries in one batch. It runs after the task mutation has
// committed, so a failure is logged rather than returned.
func (s *HistoryService) Record(ctx context.Context, entries ...models.TaskHistory) {
	if len(entries) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&entries, 200).Error; err != nil {
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.TaskID)
		}
		s.log.Error("task history write failed",
			zap.Error(err),
			zap.String("action", entries[0].Action),
			zap.Strings("task_ids", ids))
	}
}

// ForTask returns the task's history, oldest first.
func (s *HistoryService) ForTask(ctx context.Context, taskID string) ([]models.TaskHistory, error) {
	entries := []models.TaskHistory{}
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load task history: %w", err)
	}
	return entries, nil
}

func createdEntry(task *models.Task, actorID string) models.TaskHistory {
	status := string(task.Status)
	return models.TaskHistory{
		TaskID:   task.ID,
		UserID:   actorID,
		Action:   models.HistoryCreated,
		Field:    "status",
		NewValue: &status,
	}
}

func assignedEntry(taskID, actorID string, oldID, newID *string) models.TaskHistory {
	return models.TaskHistory{
		TaskID:   taskID,
		UserID:   actorID,
		Action:   models.HistoryAssigned,
		Field:    "assigned_to_id",
		OldValue: oldID,
		NewValue: newID,
	}
}

func statusEntry(taskID, actorID string, oldStatus, newStatus models.TaskStatus) models.TaskHistory {
	o, n := string(oldStatus), string(newStatus)
	return models.TaskHistory{
		TaskID:   taskID,
		UserID:   actorID,
		Action:   models.HistoryStatusChanged,
		Field:    "status",
		OldValue: &o,
		NewValue: &n,
	}
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
