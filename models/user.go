// models/user.go
package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleTeamLead   Role = "TEAM_LEAD"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var roleLevels = map[Role]int{
	RoleUser:       1,
	RoleTeamLead:   2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// Level returns the position of the role in the hierarchy, 0 for unknown roles.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r sits at or above min in the hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r.Level() > 0 && r.Level() >= min.Level()
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// ParseRole accepts any casing of a known role name.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	Base
	Email        string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Name         string     `json:"name" gorm:"size:100"`
	Role         Role       `json:"role" gorm:"size:20;not null;default:'USER'"`
	IsActive     bool       `json:"is_active" gorm:"not null;index"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	ManagerID    *string    `json:"manager_id,omitempty" gorm:"size:36;index"`
	Manager      *User      `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
