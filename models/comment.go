// models/comment.go
package models

import "time"

type Comment struct {
	Base
	TaskID    string    `json:"task_id" gorm:"size:36;not null;index"`
	Task      *Task     `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	AuthorID  string    `json:"author_id" gorm:"size:36;not null"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Comment) TableName() string {
	return "comments"
}
