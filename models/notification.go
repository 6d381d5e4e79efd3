// models/notification.go
package models

const (
	NotificationTaskAssigned  = "TASK_ASSIGNED"
	NotificationTaskCommented = "TASK_COMMENTED"
	NotificationTaskUpdated   = "TASK_UPDATED"
)

type Notification struct {
	Base
	Title   string  `json:"title" gorm:"not null;size:200"`
	Message string  `json:"message" gorm:"type:text"`
	Type    string  `json:"type" gorm:"size:30;not null"`
	UserID  string  `json:"user_id" gorm:"size:36;not null;index"`
	TaskID  *string `json:"task_id,omitempty" gorm:"size:36;index"`
	Read    bool    `json:"read" gorm:"not null;default:false;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
