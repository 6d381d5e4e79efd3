// models/task_history.go
package models

const (
	HistoryCreated       = "created"
	HistoryAssigned      = "assigned"
	HistoryStatusChanged = "status_changed"
)

// TaskHistory rows are append-only and disappear with their task.
type TaskHistory struct {
	Base
	TaskID   string  `json:"task_id" gorm:"size:36;not null;index"`
	Task     *Task   `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	UserID   string  `json:"user_id" gorm:"size:36;not null;index"`
	Action   string  `json:"action" gorm:"size:30;not null;index"`
	Field    string  `json:"field,omitempty" gorm:"size:50"`
	OldValue *string `json:"old_value,omitempty"`
	NewValue *string `json:"new_value,omitempty"`
}

func (TaskHistory) TableName() string {
	return "task_histories"
}
