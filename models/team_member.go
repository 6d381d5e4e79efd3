// models/team_member.go
package models

import "time"

type TeamRole string

const (
	TeamRoleLeader TeamRole = "LEADER"
	TeamRoleMember TeamRole = "MEMBER"
)

func (r TeamRole) Valid() bool {
	return r == TeamRoleLeader || r == TeamRoleMember
}

type TeamMember struct {
	Base
	TeamID   string    `json:"team_id" gorm:"size:36;not null;uniqueIndex:idx_team_members_team_user"`
	Team     *Team     `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	UserID   string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_team_members_team_user;index"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role     TeamRole  `json:"role" gorm:"size:20;not null;default:'MEMBER'"`
	JoinedAt time.Time `json:"joined_at" gorm:"not null"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
