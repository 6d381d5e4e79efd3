// models/team.go
package models

import "time"

type Team struct {
	Base
	OrganizationID string       `json:"organization_id" gorm:"size:36;not null;uniqueIndex:idx_teams_org_name"`
	Name           string       `json:"name" gorm:"not null;size:100;uniqueIndex:idx_teams_org_name"`
	Description    string       `json:"description" gorm:"type:text"`
	CreatorID      string       `json:"creator_id" gorm:"size:36;not null"`
	Members        []TeamMember `json:"members,omitempty" gorm:"foreignKey:TeamID"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}
