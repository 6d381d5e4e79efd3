// services/notification_service.go - in-app notifications and their read state
package services

import (
	"context"
	"fmt"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Unread        int64                 `json:"unread"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
	TotalPages    int                   `json:"totalPages"`
}

type NotificationService struct {
	db     *gorm.DB
	log    *zap.Logger
	pusher Pusher
}

func NewNotificationService(db *gorm.DB, log *zap.Logger, pusher Pusher) *NotificationService {
	return &NotificationService{db: db, log: logging.OrNop(log), pusher: pusherOrNop(pusher)}
}

// ================== DISPATCH ==================

// Send stores the notifications and pushes each one to its recipient.
// Failures are logged; the mutation that caused them has already committed.
func (s *NotificationService) Send(ctx context.Context, notifications ...models.Notification) {
	if len(notifications) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&notifications, 200).Error; err != nil {
		s.log.Error("notification write failed",
			zap.Error(err),
			zap.String("type", notifications[0].Type),
			zap.String("user_id", notifications[0].UserID),
			zap.Int("count", len(notifications)))
		return
	}
	for i := range notifications {
		s.pusher.EmitToUser(notifications[i].UserID, EventNotificationNew, notifications[i])
	}
}

func assignmentNotification(task *models.Task, assigneeID, actorName string) models.Notification {
	taskID := task.ID
	return models.Notification{
		Title:   "New task assigned",
		Message: fmt.Sprintf("%s assigned you to %q", actorName, task.Title),
		Type:    models.NotificationTaskAssigned,
		UserID:  assigneeID,
		TaskID:  &taskID,
	}
}

func commentNotification(task *models.Task, recipientID, authorName string) models.Notification {
	taskID := task.ID
	return models.Notification{
		Title:   "New comment",
		Message: fmt.Sprintf("%s commented on %q", authorName, task.Title),
		Type:    models.NotificationTaskCommented,
		UserID:  recipientID,
		TaskID:  &taskID,
	}
}

// ================== INBOX ==================

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) (*NotificationPage, error) {
	page, limit, offset := utils.Page(page, limit)

	filter := func(q *gorm.DB) *gorm.DB {
		q = q.Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("read = ?", false)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	notifications := []models.Notification{}
	err := s.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
		Page:          page,
		Limit:         limit,
		TotalPages:    utils.TotalPages(total, limit),
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, notFound(err, "Notification not found")
	}
	if n.Read {
		return &n, nil
	}
	if err := s.db.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.Read = true
	return &n, nil
}

// MarkAllRead marks every unread notification of the user and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}
