// services/team_service.go - Teams inside an organization and their membership
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TeamService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTeamService(db *gorm.DB, log *zap.Logger) *TeamService {
	return &TeamService{db: db, log: logging.OrNop(log)}
}

// ================== TEAM CRUD OPERATIONS ==================

// CreateTeam creates a team in the organization with the creator as its leader
func (s *TeamService) CreateTeam(ctx context.Context, orgID, name, description, creatorID string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("Team name is required")
	}

	member, err := s.isOrgMember(ctx, orgID, creatorID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("You must be a member of this organization")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("organization_id = ? AND name = ?", orgID, name).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check team name: %w", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("A team with this name already exists in this organization")
	}

	team := &models.Team{
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		CreatorID:      creatorID,
	}

	// Create team and add creator as leader in a transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		leader := &models.TeamMember{
			TeamID:   team.ID,
			UserID:   creatorID,
			Role:     models.TeamRoleLeader,
			JoinedAt: time.Now().UTC(),
		}
		return tx.Create(leader).Error
	})
	if isDuplicate(err) {
		return nil, apperr.Conflict("A team with this name already exists in this organization")
	}
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.log.Info("team created",
		zap.String("team_id", team.ID),
		zap.String("organization_id", orgID),
		zap.String("creator_id", creatorID))
	return team, nil
}

// GetTeamByID returns a team with members preloaded; the requester must belong to its organization
func (s *TeamService) GetTeamByID(ctx context.Context, teamID, requesterID string) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).Where("id = ?", teamID).
		Preload("Members").
		Preload("Members.User").
		First(&team).Error
	if err != nil {
		return nil, notFound(err, "Team not found")
	}

	member, err := s.isOrgMember(ctx, team.OrganizationID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("You are not a member of this organization")
	}
	return &team, nil
}

// ListOrganizationTeams returns every team of the organization
func (s *TeamService) ListOrganizationTeams(ctx context.Context, orgID, requesterID string) ([]models.Team, error) {
	member, err := s.isOrgMember(ctx, orgID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("You are not a member of this organization")
	}

	teams := []models.Team{}
	err = s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Preload("Members").
		Order("name ASC").
		Find(&teams).Error
	return teams, err
}

// ListUserTeams returns the teams of one organization the user belongs to
func (s *TeamService) ListUserTeams(ctx context.Context, orgID, userID string) ([]models.Team, error) {
	teams := []models.Team{}
	err := s.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("teams.organization_id = ? AND team_members.user_id = ?", orgID, userID).
		Preload("Members").
		Order("teams.name ASC").
		Find(&teams).Error
	return teams, err
}

// UpdateTeam updates team information (leader only)
func (s *TeamService) UpdateTeam(ctx context.Context, teamID, actorID string, name, description *string) (*models.Team, error) {
	if err := s.requireLeader(ctx, teamID, actorID); err != nil {
		return nil, err
	}

	var team models.Team
	if err := s.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error; err != nil {
		return nil, notFound(err, "Team not found")
	}

	updates := map[string]interface{}{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperr.BadRequest("Team name is required")
		}
		if trimmed != team.Name {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Team{}).
				Where("organization_id = ? AND name = ? AND id <> ?", team.OrganizationID, trimmed, teamID).
				Count(&count).Error; err != nil {
				return nil, fmt.Errorf("check team name: %w", err)
			}
			if count > 0 {
				return nil, apperr.Conflict("A team with this name already exists in this organization")
			}
			updates["name"] = trimmed
		}
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return &team, nil
	}

	if err := s.db.WithContext(ctx).Model(&team).Updates(updates).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("A team with this name already exists in this organization")
		}
		return nil, fmt.Errorf("update team: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error; err != nil {
		return nil, fmt.Errorf("reload team: %w", err)
	}
	return &team, nil
}

// DeleteTeam removes a team and its memberships (leader only). Tasks of the
// team keep their rows; team-visible ones fall back to private.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID, actorID string) error {
	if err := s.requireLeader(ctx, teamID, actorID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("team_id = ? AND visibility = ?", teamID, models.VisibilityTeam).
			Update("visibility", models.VisibilityPrivate).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).
			Where("team_id = ?", teamID).
			Update("team_id", gorm.Expr("NULL")).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", teamID).Delete(&models.Team{}).Error
	})
}

// ================== TEAM MEMBERSHIP OPERATIONS ==================

// AddMember adds an organization member to the team (leader only)
func (s *TeamService) AddMember(ctx context.Context, teamID, actorID, userID string, role models.TeamRole) (*models.TeamMember, error) {
	if role == "" {
		role = models.TeamRoleMember
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("Invalid team role")
	}

	team, err := s.requireLeaderTeam(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}

	inOrg, err := s.isOrgMember(ctx, team.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	if !inOrg {
		return nil, apperr.BadRequest("User must be a member of the organization first")
	}

	if existing, _ := s.memberOf(ctx, teamID, userID); existing != nil {
		return nil, apperr.Conflict("User is already a member of this team")
	}

	member := &models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("User is already a member of this team")
		}
		return nil, fmt.Errorf("add team member: %w", err)
	}
	return member, nil
}

// RemoveMember removes a member from the team (leader only)
func (s *TeamService) RemoveMember(ctx context.Context, teamID, actorID, userID string) error {
	if err := s.requireLeader(ctx, teamID, actorID); err != nil {
		return err
	}
	return s.removeMember(ctx, teamID, userID)
}

// LeaveTeam removes the caller from a team
func (s *TeamService) LeaveTeam(ctx context.Context, teamID, userID string) error {
	return s.removeMember(ctx, teamID, userID)
}

func (s *TeamService) removeMember(ctx context.Context, teamID, userID string) error {
	target, err := s.memberOf(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperr.NotFound("Member not found")
	}

	if target.Role == models.TeamRoleLeader {
		if err := s.keepOneLeader(ctx, teamID); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Delete(target).Error
}

// ChangeMemberRole promotes or demotes a member (leader only)
func (s *TeamService) ChangeMemberRole(ctx context.Context, teamID, actorID, userID string, role models.TeamRole) (*models.TeamMember, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest("Invalid team role")
	}
	if err := s.requireLeader(ctx, teamID, actorID); err != nil {
		return nil, err
	}

	target, err := s.memberOf(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFound("Member not found")
	}
	if target.Role == role {
		return target, nil
	}

	if target.Role == models.TeamRoleLeader {
		if err := s.keepOneLeader(ctx, teamID); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Model(target).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("change member role: %w", err)
	}
	target.Role = role
	return target, nil
}

// GetTeamMembers returns the members of a team, leaders first
func (s *TeamService) GetTeamMembers(ctx context.Context, teamID, requesterID string) ([]models.TeamMember, error) {
	if _, err := s.GetTeamByID(ctx, teamID, requesterID); err != nil {
		return nil, err
	}

	members := []models.TeamMember{}
	err := s.db.WithContext(ctx).Where("team_id = ?", teamID).
		Preload("User").
		Order("role ASC, joined_at ASC").
		Find(&members).Error
	return members, err
}

// ================== HELPER FUNCTIONS ==================

// memberOf returns the user's membership of the team, or nil when there is none
func (s *TeamService) memberOf(ctx context.Context, teamID, userID string) (*models.TeamMember, error) {
	var member models.TeamMember
	err := s.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load team member: %w", err)
	}
	return &member, nil
}

func (s *TeamService) requireLeader(ctx context.Context, teamID, actorID string) error {
	_, err := s.requireLeaderTeam(ctx, teamID, actorID)
	return err
}

func (s *TeamService) requireLeaderTeam(ctx context.Context, teamID, actorID string) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error; err != nil {
		return nil, notFound(err, "Team not found")
	}

	actor, err := s.memberOf(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageTeamMembership(actor) {
		return nil, apperr.Forbidden("Only a team leader can manage team members")
	}
	return &team, nil
}

// keepOneLeader fails when the team has a single leader left
func (s *TeamService) keepOneLeader(ctx context.Context, teamID string) error {
	var leaders int64
	if err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND role = ?", teamID, models.TeamRoleLeader).
		Count(&leaders).Error; err != nil {
		return fmt.Errorf("count team leaders: %w", err)
	}
	if leaders <= 1 {
		return apperr.BadRequest("A team must keep at least one leader")
	}
	return nil
}

func (s *TeamService) isOrgMember(ctx context.Context, orgID, userID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check organization membership: %w", err)
	}
	return count > 0, nil
}
