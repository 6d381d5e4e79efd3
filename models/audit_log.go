// models/audit_log.go
package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Entity types
const (
	EntityUser = "user"
	EntityTask = "task"
	EntityTeam = "team"
)

// BulkEntityID marks an entry that covers several entities; the ids live in Metadata.
const BulkEntityID = "bulk"

// Audit actions
const (
	AuditBulkAssign         = "BULK_ASSIGN"
	AuditBulkUpdateStatus   = "BULK_UPDATE_STATUS"
	AuditBulkUpdatePriority = "BULK_UPDATE_PRIORITY"
	AuditBulkDelete         = "BULK_DELETE"
	AuditBulkArchive        = "BULK_ARCHIVE"

	AuditUserCreated       = "USER_CREATED"
	AuditUserRoleChanged   = "USER_ROLE_CHANGED"
	AuditUserSuspended     = "USER_SUSPENDED"
	AuditUserActivated     = "USER_ACTIVATED"
	AuditUserManagerSet    = "USER_MANAGER_SET"
	AuditUserPasswordReset = "USER_PASSWORD_RESET"
	AuditUserDeleted       = "USER_DELETED"
)

// AuditLog is append-only. Changes and Metadata are stored as JSON and decoded
// per action with DecodeAuditMetadata.
type AuditLog struct {
	Base
	EntityType string         `json:"entity_type" gorm:"size:30;not null;index:idx_audit_logs_entity"`
	EntityID   string         `json:"entity_id" gorm:"size:36;not null;index:idx_audit_logs_entity"`
	Action     string         `json:"action" gorm:"size:50;not null;index"`
	ActorID    string         `json:"actor_id" gorm:"size:36;not null;index"`
	ActorEmail string         `json:"actor_email" gorm:"size:255"`
	ActorIP    string         `json:"actor_ip,omitempty" gorm:"size:64"`
	UserAgent  string         `json:"user_agent,omitempty" gorm:"size:255"`
	Changes    datatypes.JSON `json:"changes,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Change is one old/new pair inside AuditLog.Changes.
type Change struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

type Changes map[string]Change

// BulkMetadata is shared by every BULK_* action.
type BulkMetadata struct {
	TaskIDs    []string `json:"taskIds"`
	MissingIDs []string `json:"missingIds,omitempty"`
}

type BulkAssignMetadata struct {
	BulkMetadata
	AssigneeID   string `json:"assigneeId"`
	AssigneeName string `json:"assigneeName"`
}

type BulkStatusMetadata struct {
	BulkMetadata
	Status TaskStatus `json:"status"`
}

type BulkPriorityMetadata struct {
	BulkMetadata
	Priority Priority `json:"priority"`
}

// BulkRemovalMetadata covers delete and archive.
type BulkRemovalMetadata struct {
	BulkMetadata
	Count int64 `json:"count"`
}

// UserAdminMetadata describes the target of an admin user mutation.
type UserAdminMetadata struct {
	TargetEmail string `json:"targetEmail"`
	ManagerID   string `json:"managerId,omitempty"`
}

// DecodeAuditMetadata returns the concrete metadata type for action. Actions
// without a registered shape decode into a generic map.
func DecodeAuditMetadata(action string, raw datatypes.JSON) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var target interface{}
	switch action {
	case AuditBulkAssign:
		target = &BulkAssignMetadata{}
	case AuditBulkUpdateStatus:
		target = &BulkStatusMetadata{}
	case AuditBulkUpdatePriority:
		target = &BulkPriorityMetadata{}
	case AuditBulkDelete, AuditBulkArchive:
		target = &BulkRemovalMetadata{}
	case AuditUserCreated, AuditUserRoleChanged, AuditUserSuspended, AuditUserActivated,
		AuditUserManagerSet, AuditUserPasswordReset, AuditUserDeleted:
		target = &UserAdminMetadata{}
	default:
		m := map[string]interface{}{}
		target = &m
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", action, err)
	}
	return target, nil
}

// DecodeChanges unmarshals the Changes column.
func (a *AuditLog) DecodeChanges() (Changes, error) {
	if len(a.Changes) == 0 {
		return nil, nil
	}
	var c Changes
	if err := json.Unmarshal(a.Changes, &c); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}
	return c, nil
}
