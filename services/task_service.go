// services/task_service.go - Task visibility, single-task mutations and their side effects
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTitleLength = 200

// priorityRank orders priorities as an ordinal scale rather than alphabetically.
const priorityRank = "CASE tasks.priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END"

var sortColumns = map[string]string{
	"":          "tasks.created_at",
	"createdAt": "tasks.created_at",
	"updatedAt": "tasks.updated_at",
	"dueDate":   "tasks.due_date",
	"title":     "tasks.title",
	"status":    "tasks.status",
	"priority":  priorityRank,
}

type TaskFilter struct {
	Status       models.TaskStatus
	Priority     models.Priority
	AssignedToID string
	CreatorID    string
	TeamID       string
	Overdue      bool
	Search       string
	SortBy       string
	SortOrder    string
	Page         int
	Limit        int
}

type TaskPage struct {
	Tasks      []models.Task `json:"tasks"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      *time.Time
	Priority     models.Priority
	Status       models.TaskStatus
	AssignedToID *string
	TeamID       *string
	Visibility   models.Visibility
}

// UpdateTaskInput changes only the non-nil fields. AssignedToID and TeamID
// pointing at "" clear the value.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *models.Priority
	Status       *models.TaskStatus
	AssignedToID *string
	TeamID       *string
	Visibility   *models.Visibility
}

// TaskResult is returned by create and update. SendNotificationTo names the
// user who was notified about the assignment, if anyone.
type TaskResult struct {
	Task               *models.Task `json:"task"`
	SendNotificationTo *string      `json:"sendNotificationTo,omitempty"`
}

type TaskService struct {
	db            *gorm.DB
	log           *zap.Logger
	history       *HistoryService
	notifications *NotificationService
	pusher        Pusher
	now           func() time.Time
}

func NewTaskService(db *gorm.DB, log *zap.Logger, history *HistoryService, notifications *NotificationService, pusher Pusher) *TaskService {
	return &TaskService{
		db:            db,
		log:           logging.OrNop(log),
		history:       history,
		notifications: notifications,
		pusher:        pusherOrNop(pusher),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ================== READS ==================

// List returns the page of tasks visible to caps that match f.
func (s *TaskService) List(ctx context.Context, caps policy.Capabilities, f TaskFilter) (*TaskPage, error) {
	page, limit, offset := utils.Page(f.Page, f.Limit)

	order, err := taskOrder(f.SortBy, f.SortOrder)
	if err != nil {
		return nil, err
	}

	visible, filters := policy.VisibleTasks(caps), s.filterScope(f)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Task{}).Scopes(visible, filters).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	tasks := []models.Task{}
	err = s.db.WithContext(ctx).Scopes(visible, filters).
		Preload("Creator").
		Preload("AssignedTo").
		Order(order).
		Order("tasks.id").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return &TaskPage{
		Tasks:      tasks,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: utils.TotalPages(total, limit),
	}, nil
}

// Search matches query against title and description of visible tasks.
func (s *TaskService) Search(ctx context.Context, caps policy.Capabilities, query string, limit int) ([]models.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.BadRequest("Search query is required")
	}
	page, err := s.List(ctx, caps, TaskFilter{Search: query, Limit: limit, SortBy: "updatedAt"})
	if err != nil {
		return nil, err
	}
	return page.Tasks, nil
}

// GetByID returns the task if caps may see it.
func (s *TaskService) GetByID(ctx context.Context, caps policy.Capabilities, id string) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewTask(caps, task) {
		return nil, apperr.Forbidden("You do not have access to this task")
	}
	return task, nil
}

// History returns the transition log of a visible task.
func (s *TaskService) History(ctx context.Context, caps policy.Capabilities, id string) ([]models.TaskHistory, error) {
	if _, err := s.GetByID(ctx, caps, id); err != nil {
		return nil, err
	}
	return s.history.ForTask(ctx, id)
}

func (s *TaskService) load(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Creator").
		Preload("AssignedTo").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, notFound(err, "Task not found")
	}
	return &task, nil
}

func (s *TaskService) filterScope(f TaskFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Status != "" {
			q = q.Where("tasks.status = ?", f.Status)
		}
		if f.Priority != "" {
			q = q.Where("tasks.priority = ?", f.Priority)
		}
		if f.AssignedToID != "" {
			q = q.Where("tasks.assigned_to_id = ?", f.AssignedToID)
		}
		if f.CreatorID != "" {
			q = q.Where("tasks.creator_id = ?", f.CreatorID)
		}
		if f.TeamID != "" {
			q = q.Where("tasks.team_id = ?", f.TeamID)
		}
		if f.Overdue {
			q = q.Where("tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?",
				s.now(), models.StatusCompleted)
		}
		if term := strings.TrimSpace(f.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?)", like, like)
		}
		return q
	}
}

func taskOrder(sortBy, sortOrder string) (string, error) {
	column, ok := sortColumns[sortBy]
	if !ok {
		return "", apperr.BadRequest("Invalid sort field: " + sortBy)
	}
	switch strings.ToLower(sortOrder) {
	case "", "desc":
		return column + " DESC", nil
	case "asc":
		return column + " ASC", nil
	}
	return "", apperr.BadRequest("Invalid sort order: " + sortOrder)
}

// ================== MUTATIONS ==================

// Create stores a task owned by the caller inside the caller's active
// organization, or as an individual task when there is none.
func (s *TaskService) Create(ctx context.Context, caps policy.Capabilities, in CreateTaskInput) (*TaskResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.BadRequest("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperr.BadRequest("Title must be at most 200 characters")
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperr.BadRequest("Invalid priority")
	}
	status := in.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return nil, apperr.BadRequest("Invalid status")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if !visibility.Valid() {
		return nil, apperr.BadRequest("Invalid visibility")
	}

	teamID := emptyToNil(in.TeamID)
	if caps.IndividualMode() {
		if teamID != nil {
			return nil, apperr.BadRequest("Teams require an organization context")
		}
		if visibility != models.VisibilityPrivate {
			return nil, apperr.BadRequest("Individual tasks are always private")
		}
	} else if teamID != nil {
		if err := s.requireTeam(ctx, caps, *caps.OrganizationID, *teamID); err != nil {
			return nil, err
		}
	}
	if visibility == models.VisibilityTeam && teamID == nil {
		return nil, apperr.BadRequest("Team visibility requires a team")
	}

	var assigneeID *string
	if id := emptyToNil(in.AssignedToID); id != nil {
		assignee, err := findActiveAssignee(ctx, s.db, *id)
		if err != nil {
			return nil, err
		}
		assigneeID = &assignee.ID
	}

	var dueDate *time.Time
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		dueDate = &d
	}

	task := &models.Task{
		Title:          title,
		Description:    in.Description,
		DueDate:        dueDate,
		Priority:       priority,
		Status:         status,
		CreatorID:      caps.UserID,
		AssignedToID:   assigneeID,
		OrganizationID: copyID(caps.OrganizationID),
		TeamID:         teamID,
		Visibility:     visibility,
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	created, err := s.load(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	s.history.Record(ctx, createdEntry(created, caps.UserID))

	result := &TaskResult{Task: created}
	if created.AssignedToID != nil && *created.AssignedToID != caps.UserID {
		s.notifications.Send(ctx, assignmentNotification(created, *created.AssignedToID, displayName(ctx, s.db, caps)))
		result.SendNotificationTo = copyID(created.AssignedToID)
	}

	s.pusher.Emit(EventTaskCreated, created)
	return result, nil
}

// Update applies in to the task. History and notifications are written after
// the row update commits, from the reloaded post-update state.
func (s *TaskService) Update(ctx context.Context, caps policy.Capabilities, id string, in UpdateTaskInput) (*TaskResult, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateTask(caps, task) {
		return nil, apperr.Forbidden("Not authorized to update this task")
	}

	updates := map[string]interface{}{}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.BadRequest("Title is required")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return nil, apperr.BadRequest("Title must be at most 200 characters")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.ClearDueDate {
		updates["due_date"] = nil
	} else if in.DueDate != nil {
		updates["due_date"] = in.DueDate.UTC()
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, apperr.BadRequest("Invalid priority")
		}
		updates["priority"] = *in.Priority
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.BadRequest("Invalid status")
		}
		updates["status"] = *in.Status
	}

	visibility := task.Visibility
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, apperr.BadRequest("Invalid visibility")
		}
		if task.OrganizationID == nil && *in.Visibility != models.VisibilityPrivate {
			return nil, apperr.BadRequest("Individual tasks are always private")
		}
		visibility = *in.Visibility
		updates["visibility"] = visibility
	}

	teamID := task.TeamID
	if in.TeamID != nil {
		teamID = emptyToNil(in.TeamID)
		if teamID != nil {
			if task.OrganizationID == nil {
				return nil, apperr.BadRequest("Teams require an organization context")
			}
			if err := s.requireTeam(ctx, caps, *task.OrganizationID, *teamID); err != nil {
				return nil, err
			}
			updates["team_id"] = *teamID
		} else {
			updates["team_id"] = nil
		}
	}
	if visibility == models.VisibilityTeam && teamID == nil {
		return nil, apperr.BadRequest("Team visibility requires a team")
	}

	if in.AssignedToID != nil {
		var newAssignee *string
		if id := emptyToNil(in.AssignedToID); id != nil {
			assignee, err := findActiveAssignee(ctx, s.db, *id)
			if err != nil {
				return nil, err
			}
			newAssignee = &assignee.ID
		}
		if !sameID(task.AssignedToID, newAssignee) {
			if newAssignee == nil {
				updates["assigned_to_id"] = nil
			} else {
				updates["assigned_to_id"] = *newAssignee
			}
		}
	}

	if len(updates) == 0 {
		return &TaskResult{Task: task}, nil
	}

	oldStatus, oldAssignee := task.Status, copyID(task.AssignedToID)

	if err := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	updated, err := s.load(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	var entries []models.TaskHistory
	if updated.Status != oldStatus {
		entries = append(entries, statusEntry(updated.ID, caps.UserID, oldStatus, updated.Status))
	}
	assigneeChanged := !sameID(oldAssignee, updated.AssignedToID)
	if assigneeChanged {
		entries = append(entries, assignedEntry(updated.ID, caps.UserID, oldAssignee, copyID(updated.AssignedToID)))
	}
	s.history.Record(ctx, entries...)

	result := &TaskResult{Task: updated}
	if assigneeChanged && updated.AssignedToID != nil && *updated.AssignedToID != caps.UserID {
		s.notifications.Send(ctx, assignmentNotification(updated, *updated.AssignedToID, displayName(ctx, s.db, caps)))
		result.SendNotificationTo = copyID(updated.AssignedToID)
	}

	s.pusher.Emit(EventTaskUpdated, updated)
	return result, nil
}

// Delete removes the task with its history and comments. Only the creator may delete.
func (s *TaskService) Delete(ctx context.Context, caps policy.Capabilities, id string) error {
	task, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTask(caps, task) {
		return apperr.Forbidden("Only the task creator can delete this task")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := deleteTasks(tx, []string{task.ID})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.pusher.Emit(EventTaskDeleted, map[string]string{"id": task.ID})
	return nil
}

// ================== HELPERS ==================

func (s *TaskService) requireTeam(ctx context.Context, caps policy.Capabilities, orgID, teamID string) error {
	var team models.Team
	err := s.db.WithContext(ctx).Where("id = ? AND organization_id = ?", teamID, orgID).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.BadRequest("Team not found in this organization")
	}
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if !caps.InTeam(teamID) {
		return apperr.Forbidden("You are not a member of this team")
	}
	return nil
}

// findActiveAssignee resolves an assignee id, rejecting unknown and suspended users.
func findActiveAssignee(ctx context.Context, db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.BadRequest("Assignee not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load assignee: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.BadRequest("Assignee account is suspended")
	}
	return &user, nil
}

// deleteTasks removes tasks and their dependent rows inside tx and returns
// the number of task rows deleted.
func deleteTasks(tx *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskHistory{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&models.Notification{}).Where("task_id IN ?", ids).
		Update("task_id", gorm.Expr("NULL")).Error; err != nil {
		return 0, err
	}
	result := tx.Where("id IN ?", ids).Delete(&models.Task{})
	return result.RowsAffected, result.Error
}

// displayName is used in notification text; it never fails.
func displayName(ctx context.Context, db *gorm.DB, caps policy.Capabilities) string {
	var user models.User
	if err := db.WithContext(ctx).Select("name", "email").Where("id = ?", caps.UserID).First(&user).Error; err == nil {
		if user.Name != "" {
			return user.Name
		}
		return user.Email
	}
	if caps.Email != "" {
		return caps.Email
	}
	return "Someone"
}

func emptyToNil(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
