package testutil

import (
	"strings"
	"testing"
	"time"

	"taskhub/models"
	"taskhub/policy"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the plain-text password of every fixture user.
const Password = "password123"

type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// CreateUser inserts an active user. The name is derived from the email.
func (f *Fixtures) CreateUser(email string, role models.Role) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.Split(email, "@")[0],
		Role:         role,
		IsActive:     true,
	}
	if err := f.db.Create(&user).Error; err != nil {
		f.t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func (f *Fixtures) Suspend(userID string) {
	f.t.Helper()
	if err := f.db.Model(&models.User{}).Where("id = ?", userID).Update("is_active", false).Error; err != nil {
		f.t.Fatalf("suspend user: %v", err)
	}
}

// CreateOrganization inserts an organization with owner as its OWNER member.
func (f *Fixtures) CreateOrganization(name string, owner models.User) models.Organization {
	f.t.Helper()
	org := models.Organization{Name: name, CreatorID: owner.ID}
	if err := f.db.Create(&org).Error; err != nil {
		f.t.Fatalf("create organization: %v", err)
	}
	f.AddOrgMember(org.ID, owner.ID, models.OrgRoleOwner)
	return org
}

func (f *Fixtures) AddOrgMember(orgID, userID string, role models.OrgRole) {
	f.t.Helper()
	m := models.Membership{OrganizationID: orgID, UserID: userID, Role: role}
	if err := f.db.Create(&m).Error; err != nil {
		f.t.Fatalf("add org member: %v", err)
	}
}

// CreateTeam inserts a team led by leader. The leader must already be an org member.
func (f *Fixtures) CreateTeam(orgID, name string, leader models.User) models.Team {
	f.t.Helper()
	team := models.Team{OrganizationID: orgID, Name: name, CreatorID: leader.ID}
	if err := f.db.Create(&team).Error; err != nil {
		f.t.Fatalf("create team: %v", err)
	}
	f.AddTeamMember(team.ID, leader.ID, models.TeamRoleLeader)
	return team
}

func (f *Fixtures) AddTeamMember(teamID, userID string, role models.TeamRole) {
	f.t.Helper()
	m := models.TeamMember{TeamID: teamID, UserID: userID, Role: role, JoinedAt: time.Now()}
	if err := f.db.Create(&m).Error; err != nil {
		f.t.Fatalf("add team member: %v", err)
	}
}

// CreateTask inserts task as given, filling in defaults for empty enum fields.
func (f *Fixtures) CreateTask(task models.Task) models.Task {
	f.t.Helper()
	if task.Title == "" {
		task.Title = "task"
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Visibility == "" {
		task.Visibility = models.VisibilityPrivate
	}
	if err := f.db.Create(&task).Error; err != nil {
		f.t.Fatalf("create task: %v", err)
	}
	return task
}

// Caps builds the capability set the auth middleware would produce for user.
func Caps(user models.User, orgID *string, teamIDs ...string) policy.Capabilities {
	return policy.Capabilities{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: orgID,
		TeamIDs:        teamIDs,
	}
}

func Ptr[T any](v T) *T { return &v }
