// services/access_service.go - resolves the capability set of an authenticated user
package services

import (
	"context"
	"errors"
	"fmt"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AccessService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAccessService(db *gorm.DB, log *zap.Logger) *AccessService {
	return &AccessService{db: db, log: logging.OrNop(log)}
}

// Resolve loads the user and, when orgID is set, checks organization
// membership and collects the user's teams in that organization.
func (s *AccessService) Resolve(ctx context.Context, userID, orgID string) (policy.Capabilities, *models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return policy.Capabilities{}, nil, apperr.Unauthorized("User not found")
	}
	if err != nil {
		return policy.Capabilities{}, nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return policy.Capabilities{}, nil, apperr.Unauthorized("Account is suspended")
	}

	caps := policy.Capabilities{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}
	if orgID == "" {
		return caps, &user, nil
	}

	var membership models.Membership
	err = s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, user.ID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return policy.Capabilities{}, nil, apperr.Forbidden("You are not a member of this organization")
	}
	if err != nil {
		return policy.Capabilities{}, nil, fmt.Errorf("load membership: %w", err)
	}

	var teams []models.TeamMember
	err = s.db.WithContext(ctx).
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("teams.organization_id = ? AND team_members.user_id = ?", orgID, user.ID).
		Find(&teams).Error
	if err != nil {
		return policy.Capabilities{}, nil, fmt.Errorf("load team memberships: %w", err)
	}

	org := membership.OrganizationID
	caps.OrganizationID = &org
	caps.OrgRole = membership.Role
	caps.TeamIDs = make([]string, 0, len(teams))
	for _, m := range teams {
		caps.TeamIDs = append(caps.TeamIDs, m.TeamID)
		if m.Role == models.TeamRoleLeader {
			caps.LedTeamIDs = append(caps.LedTeamIDs, m.TeamID)
		}
	}
	return caps, &user, nil
}
