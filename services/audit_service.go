// services/audit_service.go - append-only audit trail for admin and bulk actions
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskhub/logging"
	"taskhub/models"
	"taskhub/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit destinations.
const (
	AuditToAll = "all"
	AuditToDB  = "db"
	AuditToLog = "log"
	AuditOff   = "off"
)

// AuditActor identifies who performed an audited action.
type AuditActor struct {
	ID        string
	Email     string
	IP        string
	UserAgent string
}

type AuditEntry struct {
	EntityType string
	EntityID   string
	Action     string
	Actor      AuditActor
	Changes    models.Changes
	Metadata   interface{}
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
	From       *time.Time
	To         *time.Time
}

type AuditPage struct {
	Logs       []models.AuditLog `json:"logs"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

type AuditService struct {
	db   *gorm.DB
	log  *zap.Logger
	dest string
}

func NewAuditService(db *gorm.DB, log *zap.Logger, dest string) *AuditService {
	if dest == "" {
		dest = AuditToAll
	}
	return &AuditService{db: db, log: logging.OrNop(log), dest: dest}
}

// Log records an entry. Failures are logged and swallowed so that audit
// problems never undo the mutation being described. Safe on a nil receiver.
func (s *AuditService) Log(ctx context.Context, e AuditEntry) {
	if s == nil {
		return
	}
	if _, err := s.Record(ctx, e); err != nil {
		s.log.Error("audit write failed",
			zap.Error(err),
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
			zap.String("actor_id", e.Actor.ID))
	}
}

// Record writes the entry according to the configured destination and returns
// the stored row (nil when nothing was written to the database).
func (s *AuditService) Record(ctx context.Context, e AuditEntry) (*models.AuditLog, error) {
	if s.dest == AuditOff {
		return nil, nil
	}

	entry := &models.AuditLog{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		ActorID:    e.Actor.ID,
		ActorEmail: e.Actor.Email,
		ActorIP:    e.Actor.IP,
		UserAgent:  e.Actor.UserAgent,
	}
	if len(e.Changes) > 0 {
		raw, err := json.Marshal(e.Changes)
		if err != nil {
			return nil, fmt.Errorf("encode audit changes: %w", err)
		}
		entry.Changes = datatypes.JSON(raw)
	}
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode audit metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(raw)
	}

	if s.dest == AuditToAll || s.dest == AuditToLog {
		s.log.Info("audit",
			zap.Bool("audit", true),
			zap.String("action", entry.Action),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.String("actor_id", entry.ActorID),
			zap.String("actor_email", entry.ActorEmail),
			zap.String("actor_ip", entry.ActorIP),
			zap.ByteString("metadata", entry.Metadata))
	}
	if s.dest == AuditToLog {
		return nil, nil
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return entry, nil
}

// GetLogs returns a page of entries matching f, newest first.
func (s *AuditService) GetLogs(ctx context.Context, f AuditFilter, page, limit int) (*AuditPage, error) {
	page, limit, offset := utils.Page(page, limit)

	filter := func(q *gorm.DB) *gorm.DB {
		if f.EntityType != "" {
			q = q.Where("entity_type = ?", f.EntityType)
		}
		if f.EntityID != "" {
			q = q.Where("entity_id = ?", f.EntityID)
		}
		if f.ActorID != "" {
			q = q.Where("actor_id = ?", f.ActorID)
		}
		if f.Action != "" {
			q = q.Where("action = ?", f.Action)
		}
		if f.From != nil {
			q = q.Where("created_at >= ?", f.From.UTC())
		}
		if f.To != nil {
			q = q.Where("created_at <= ?", f.To.UTC())
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.AuditLog{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	logs := []models.AuditLog{}
	err := s.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	return &AuditPage{
		Logs:       logs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: utils.TotalPages(total, limit),
	}, nil
}

// GetEntityHistory returns the most recent limit entries for one entity.
func (s *AuditService) GetEntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = 50
	}
	logs := []models.AuditLog{}
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("entity audit history: %w", err)
	}
	return logs, nil
}
