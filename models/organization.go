// models/organization.go
package models

import "time"

type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
)

// CanManageMembers reports whether the org role may add or remove members.
func (r OrgRole) CanManageMembers() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

type Organization struct {
	Base
	Name        string       `json:"name" gorm:"not null;size:100"`
	Description string       `json:"description" gorm:"type:text"`
	CreatorID   string       `json:"creator_id" gorm:"size:36;not null"`
	Members     []Membership `json:"members,omitempty" gorm:"foreignKey:OrganizationID"`
	Teams       []Team       `json:"teams,omitempty" gorm:"foreignKey:OrganizationID"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

// Membership is the organization-level membership a user needs before joining
// any of the organization's teams.
type Membership struct {
	Base
	OrganizationID string        `json:"organization_id" gorm:"size:36;not null;uniqueIndex:idx_memberships_org_user"`
	Organization   *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	UserID         string        `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_memberships_org_user;index"`
	User           *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role           OrgRole       `json:"role" gorm:"size:20;not null;default:'MEMBER'"`
}

func (Membership) TableName() string {
	return "memberships"
}
