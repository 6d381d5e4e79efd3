// services/comment_service.go - task comments
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCommentLength = 5000

type CommentService struct {
	db            *gorm.DB
	log           *zap.Logger
	tasks         *TaskService
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, log *zap.Logger, tasks *TaskService, notifications *NotificationService) *CommentService {
	return &CommentService{db: db, log: logging.OrNop(log), tasks: tasks, notifications: notifications}
}

// Add comments on a visible task and notifies its creator and assignee,
// except the author.
func (s *CommentService) Add(ctx context.Context, caps policy.Capabilities, taskID, content string) (*models.Comment, error) {
	content, err := validComment(content)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, caps, taskID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{TaskID: task.ID, AuthorID: caps.UserID, Content: content}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	author := displayName(ctx, s.db, caps)
	var notifications []models.Notification
	recipients := []string{task.CreatorID}
	if task.AssignedToID != nil {
		recipients = append(recipients, *task.AssignedToID)
	}
	for _, id := range dedupe(recipients) {
		if id != caps.UserID {
			notifications = append(notifications, commentNotification(task, id, author))
		}
	}
	s.notifications.Send(ctx, notifications...)

	return s.get(ctx, comment.ID)
}

// List returns the comments of a visible task, oldest first.
func (s *CommentService) List(ctx context.Context, caps policy.Capabilities, taskID string) ([]models.Comment, error) {
	if _, err := s.tasks.GetByID(ctx, caps, taskID); err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) Update(ctx context.Context, caps policy.Capabilities, id, content string) (*models.Comment, error) {
	content, err := validComment(content)
	if err != nil {
		return nil, err
	}
	comment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditComment(caps, comment) {
		return nil, apperr.Forbidden("Only the author can edit this comment")
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content).Error; err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.get(ctx, id)
}

func (s *CommentService) Delete(ctx context.Context, caps policy.Capabilities, id string) error {
	comment, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanEditComment(caps, comment) {
		return apperr.Forbidden("Only the author can delete this comment")
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}

func (s *CommentService) get(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, notFound(err, "Comment not found")
	}
	return &comment, nil
}

func validComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.BadRequest("Comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return "", apperr.BadRequest("Comment must be at most 5000 characters")
	}
	return content, nil
}
