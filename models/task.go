// models/task.go
package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank orders priorities LOW < MEDIUM < HIGH < URGENT. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

func (p Priority) Valid() bool { return p.Rank() > 0 }

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusReview     TaskStatus = "REVIEW"
	StatusCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPrivate      Visibility = "PRIVATE"
	VisibilityTeam         Visibility = "TEAM"
	VisibilityOrganization Visibility = "ORGANIZATION"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityOrganization:
		return true
	}
	return false
}

// ParsePriority, ParseStatus and ParseVisibility accept any casing.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.Valid()
}

func ParseStatus(s string) (TaskStatus, bool) {
	st := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

func ParseVisibility(s string) (Visibility, bool) {
	v := Visibility(strings.ToUpper(strings.TrimSpace(s)))
	return v, v.Valid()
}

// Task is owned by its creator. A nil OrganizationID means individual mode.
type Task struct {
	Base
	Title          string     `json:"title" gorm:"not null;size:200"`
	Description    string     `json:"description" gorm:"type:text"`
	DueDate        *time.Time `json:"due_date,omitempty" gorm:"index"`
	Priority       Priority   `json:"priority" gorm:"size:10;not null;default:'MEDIUM'"`
	Status         TaskStatus `json:"status" gorm:"size:20;not null;default:'TODO';index"`
	CreatorID      string     `json:"creator_id" gorm:"size:36;not null;index"`
	Creator        *User      `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	AssignedToID   *string    `json:"assigned_to_id,omitempty" gorm:"size:36;index"`
	AssignedTo     *User      `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`
	OrganizationID *string    `json:"organization_id,omitempty" gorm:"size:36;index"`
	TeamID         *string    `json:"team_id,omitempty" gorm:"size:36;index"`
	Visibility     Visibility `json:"visibility" gorm:"size:20;not null;default:'PRIVATE'"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// IsOverdue mirrors the list filter: due before now and not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}
