// models/ai_log.go
package models

import "gorm.io/datatypes"

// AIInteractionLog records one function call made on behalf of the assistant.
type AIInteractionLog struct {
	Base
	UserID string         `json:"user_id" gorm:"size:36;not null;index"`
	Action string         `json:"action" gorm:"size:50;not null"`
	Params datatypes.JSON `json:"params,omitempty"`
	Result datatypes.JSON `json:"result,omitempty"`
	Error  string         `json:"error,omitempty" gorm:"type:text"`
}

func (AIInteractionLog) TableName() string {
	return "ai_interaction_logs"
}
