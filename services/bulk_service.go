// services/bulk_service.go - one action applied across many tasks
package services

import (
	"context"
	"fmt"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type BulkAction string

const (
	BulkAssign         BulkAction = "assign"
	BulkUpdateStatus   BulkAction = "update_status"
	BulkUpdatePriority BulkAction = "update_priority"
	BulkDelete         BulkAction = "delete"
	BulkArchive        BulkAction = "archive"
)

// MaxBulkTasks caps the id list of one request.
const MaxBulkTasks = 1000

const previewSize = 10

type BulkData struct {
	AssigneeID string `json:"assigneeId,omitempty"`
	Status     string `json:"status,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

type BulkRequest struct {
	Action  BulkAction `json:"action"`
	TaskIDs []string   `json:"taskIds"`
	Data    BulkData   `json:"data"`
}

type BulkItemError struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// BulkResult reports per-item existence failures. Success is false only when
// some ids were missing; validation failures are returned as errors instead.
type BulkResult struct {
	Success   bool            `json:"success"`
	Processed int64           `json:"processed"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors"`
}

type BulkPreview struct {
	TotalRequested int              `json:"totalRequested"`
	Found          int64            `json:"found"`
	Missing        int64            `json:"missing"`
	ByStatus       map[string]int64 `json:"byStatus"`
	ByPriority     map[string]int64 `json:"byPriority"`
	Tasks          []models.Task    `json:"tasks"`
}

type BulkService struct {
	db            *gorm.DB
	log           *zap.Logger
	audit         *AuditService
	history       *HistoryService
	notifications *NotificationService
	pusher        Pusher
}

func NewBulkService(db *gorm.DB, log *zap.Logger, audit *AuditService, history *HistoryService, notifications *NotificationService, pusher Pusher) *BulkService {
	return &BulkService{
		db:            db,
		log:           logging.OrNop(log),
		audit:         audit,
		history:       history,
		notifications: notifications,
		pusher:        pusherOrNop(pusher),
	}
}

// bulkPlan is the validated form of a request.
type bulkPlan struct {
	action   BulkAction
	assignee *models.User
	status   models.TaskStatus
	priority models.Priority
}

// Execute applies req to every existing task in req.TaskIDs with one batch
// statement. Ids that do not exist are reported in the result and skipped.
// Exactly one audit entry is written per call.
func (s *BulkService) Execute(ctx context.Context, actor AuditActor, req BulkRequest) (*BulkResult, error) {
	ids := dedupe(req.TaskIDs)
	if len(ids) == 0 {
		return nil, apperr.BadRequest("taskIds must contain at least one id")
	}
	if len(ids) > MaxBulkTasks {
		return nil, apperr.BadRequest(fmt.Sprintf("At most %d tasks can be processed at once", MaxBulkTasks))
	}

	existing, err := s.existingTasks(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make([]string, 0, len(existing))
	missing := []string{}
	errs := []BulkItemError{}
	for _, id := range ids {
		if _, ok := existing[id]; ok {
			found = append(found, id)
			continue
		}
		missing = append(missing, id)
		errs = append(errs, BulkItemError{TaskID: id, Error: "Task not found"})
	}

	plan, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	processed, err := s.apply(ctx, plan, found)
	if err != nil {
		return nil, err
	}

	s.sideEffects(ctx, actor, plan, found, existing)
	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityTask,
		EntityID:   models.BulkEntityID,
		Action:     auditAction(plan.action),
		Actor:      actor,
		Metadata:   bulkMetadata(plan, found, missing, processed),
	})

	s.pusher.Emit(EventTasksBulkUpdated, map[string]interface{}{
		"action":  plan.action,
		"taskIds": found,
	})

	return &BulkResult{
		Success:   len(errs) == 0,
		Processed: processed,
		Failed:    len(errs),
		Errors:    errs,
	}, nil
}

func (s *BulkService) validate(ctx context.Context, req BulkRequest) (*bulkPlan, error) {
	plan := &bulkPlan{action: req.Action}

	switch req.Action {
	case BulkAssign:
		if req.Data.AssigneeID == "" {
			return nil, apperr.BadRequest("assigneeId is required for assign")
		}
		assignee, err := findActiveAssignee(ctx, s.db, req.Data.AssigneeID)
		if err != nil {
			return nil, err
		}
		plan.assignee = assignee
	case BulkUpdateStatus:
		if req.Data.Status == "" {
			return nil, apperr.BadRequest("status is required for update_status")
		}
		status, ok := models.ParseStatus(req.Data.Status)
		if !ok {
			return nil, apperr.BadRequest("Invalid status")
		}
		plan.status = status
	case BulkUpdatePriority:
		if req.Data.Priority == "" {
			return nil, apperr.BadRequest("priority is required for update_priority")
		}
		priority, ok := models.ParsePriority(req.Data.Priority)
		if !ok {
			return nil, apperr.BadRequest("Invalid priority")
		}
		plan.priority = priority
	case BulkArchive:
		plan.status = models.StatusCompleted
	case BulkDelete:
	default:
		return nil, apperr.BadRequest("Unknown action")
	}
	return plan, nil
}

// apply runs the single batch statement and returns the affected row count.
func (s *BulkService) apply(ctx context.Context, plan *bulkPlan, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tasks := s.db.WithContext(ctx).Model(&models.Task{}).Where("id IN ?", ids)

	var result *gorm.DB
	switch plan.action {
	case BulkAssign:
		result = tasks.Update("assigned_to_id", plan.assignee.ID)
	case BulkUpdateStatus, BulkArchive:
		result = tasks.Update("status", plan.status)
	case BulkUpdatePriority:
		result = tasks.Update("priority", plan.priority)
	case BulkDelete:
		var deleted int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			n, err := deleteTasks(tx, ids)
			deleted = n
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("bulk delete: %w", err)
		}
		return deleted, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("bulk %s: %w", plan.action, result.Error)
	}
	return result.RowsAffected, nil
}

// sideEffects writes history for tasks whose status or assignee actually
// changed and notifies the new assignee unless the actor assigned themselves.
func (s *BulkService) sideEffects(ctx context.Context, actor AuditActor, plan *bulkPlan, ids []string, before map[string]models.Task) {
	var entries []models.TaskHistory
	var notifications []models.Notification

	for _, id := range ids {
		prior := before[id]
		switch plan.action {
		case BulkUpdateStatus, BulkArchive:
			if prior.Status != plan.status {
				entries = append(entries, statusEntry(id, actor.ID, prior.Status, plan.status))
			}
		case BulkAssign:
			newID := plan.assignee.ID
			if sameID(prior.AssignedToID, &newID) {
				continue
			}
			entries = append(entries, assignedEntry(id, actor.ID, copyID(prior.AssignedToID), &newID))
			if newID != actor.ID {
				task := prior
				notifications = append(notifications, assignmentNotification(&task, newID, actorLabel(actor)))
			}
		}
	}

	s.history.Record(ctx, entries...)
	s.notifications.Send(ctx, notifications...)
}

func (s *BulkService) existingTasks(ctx context.Context, ids []string) (map[string]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Select("id", "title", "status", "priority", "assigned_to_id").
		Where("id IN ?", ids).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("resolve bulk task ids: %w", err)
	}
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID, nil
}

// ================== PREVIEW ==================

type groupCount struct {
	Bucket string
	Total  int64
}

// Preview describes what a bulk action over taskIDs would touch. It writes nothing.
func (s *BulkService) Preview(ctx context.Context, taskIDs []string) (*BulkPreview, error) {
	ids := dedupe(taskIDs)
	if len(ids) == 0 {
		return nil, apperr.BadRequest("taskIds must contain at least one id")
	}
	if len(ids) > MaxBulkTasks {
		return nil, apperr.BadRequest(fmt.Sprintf("At most %d tasks can be processed at once", MaxBulkTasks))
	}

	preview := &BulkPreview{
		TotalRequested: len(ids),
		ByStatus:       map[string]int64{},
		ByPriority:     map[string]int64{},
		Tasks:          []models.Task{},
	}

	var byStatus, byPriority []groupCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Task{}).Where("id IN ?", ids).Count(&preview.Found).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Task{}).
			Select("status AS bucket, COUNT(*) AS total").
			Where("id IN ?", ids).
			Group("status").
			Scan(&byStatus).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Task{}).
			Select("priority AS bucket, COUNT(*) AS total").
			Where("id IN ?", ids).
			Group("priority").
			Scan(&byPriority).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Preload("AssignedTo").
			Where("id IN ?", ids).
			Order("created_at DESC").
			Limit(previewSize).
			Find(&preview.Tasks).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bulk preview: %w", err)
	}

	for _, c := range byStatus {
		preview.ByStatus[c.Bucket] = c.Total
	}
	for _, c := range byPriority {
		preview.ByPriority[c.Bucket] = c.Total
	}
	preview.Missing = int64(len(ids)) - preview.Found
	return preview, nil
}

// ================== AUDIT ==================

func auditAction(action BulkAction) string {
	switch action {
	case BulkAssign:
		return models.AuditBulkAssign
	case BulkUpdateStatus:
		return models.AuditBulkUpdateStatus
	case BulkUpdatePriority:
		return models.AuditBulkUpdatePriority
	case BulkDelete:
		return models.AuditBulkDelete
	case BulkArchive:
		return models.AuditBulkArchive
	}
	return "BULK_UNKNOWN"
}

func bulkMetadata(plan *bulkPlan, found, missing []string, processed int64) interface{} {
	base := models.BulkMetadata{TaskIDs: found, MissingIDs: missing}
	switch plan.action {
	case BulkAssign:
		name := plan.assignee.Name
		if name == "" {
			name = plan.assignee.Email
		}
		return models.BulkAssignMetadata{BulkMetadata: base, AssigneeID: plan.assignee.ID, AssigneeName: name}
	case BulkUpdateStatus:
		return models.BulkStatusMetadata{BulkMetadata: base, Status: plan.status}
	case BulkUpdatePriority:
		return models.BulkPriorityMetadata{BulkMetadata: base, Priority: plan.priority}
	default:
		return models.BulkRemovalMetadata{BulkMetadata: base, Count: processed}
	}
}

func actorLabel(actor AuditActor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return "An administrator"
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
