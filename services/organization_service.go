// services/organization_service.go - organizations and organization-level membership
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrganizationService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewOrganizationService(db *gorm.DB, log *zap.Logger) *OrganizationService {
	return &OrganizationService{db: db, log: logging.OrNop(log)}
}

// Create creates an organization with the creator as OWNER.
func (s *OrganizationService) Create(ctx context.Context, name, description, creatorID string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("Organization name is required")
	}

	org := &models.Organization{Name: name, Description: description, CreatorID: creatorID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		return tx.Create(&models.Membership{
			OrganizationID: org.ID,
			UserID:         creatorID,
			Role:           models.OrgRoleOwner,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	s.log.Info("organization created", zap.String("organization_id", org.ID), zap.String("creator_id", creatorID))
	return org, nil
}

// Get returns the organization with its teams; the requester must be a member.
func (s *OrganizationService) Get(ctx context.Context, orgID, requesterID string) (*models.Organization, error) {
	if _, err := s.membership(ctx, orgID, requesterID); err != nil {
		return nil, err
	}
	var org models.Organization
	err := s.db.WithContext(ctx).Preload("Teams").Where("id = ?", orgID).First(&org).Error
	if err != nil {
		return nil, notFound(err, "Organization not found")
	}
	return &org, nil
}

// ListForUser returns the organizations the user belongs to.
func (s *OrganizationService) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	orgs := []models.Organization{}
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.organization_id = organizations.id").
		Where("memberships.user_id = ?", userID).
		Order("organizations.name ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

func (s *OrganizationService) ListMembers(ctx context.Context, orgID, requesterID string) ([]models.Membership, error) {
	if _, err := s.membership(ctx, orgID, requesterID); err != nil {
		return nil, err
	}
	members := []models.Membership{}
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", orgID).
		Order("CASE role WHEN 'OWNER' THEN 0 WHEN 'ADMIN' THEN 1 ELSE 2 END, created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list organization members: %w", err)
	}
	return members, nil
}

// AddMember adds the user with the given email. Only owners and admins may
// add members, and ownership cannot be granted this way.
func (s *OrganizationService) AddMember(ctx context.Context, orgID, actorID, email string, role models.OrgRole) (*models.Membership, error) {
	if role == "" {
		role = models.OrgRoleMember
	}
	if role != models.OrgRoleMember && role != models.OrgRoleAdmin {
		return nil, apperr.BadRequest("Invalid organization role")
	}

	actor, err := s.membership(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageOrgMembers(actor) {
		return nil, apperr.Forbidden("Only organization owners and admins can add members")
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, notFound(err, "User not found")
	}

	member := &models.Membership{OrganizationID: orgID, UserID: user.ID, Role: role}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("User is already a member of this organization")
		}
		return nil, fmt.Errorf("add organization member: %w", err)
	}
	member.User = &user
	return member, nil
}

// RemoveMember removes a member and their team memberships in the
// organization. Members may remove themselves; the owner cannot be removed.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, actorID, userID string) error {
	if actorID != userID {
		actor, err := s.membership(ctx, orgID, actorID)
		if err != nil {
			return err
		}
		if !policy.CanManageOrgMembers(actor) {
			return apperr.Forbidden("Only organization owners and admins can remove members")
		}
	}

	var target models.Membership
	err := s.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).First(&target).Error
	if err != nil {
		return notFound(err, "Member not found")
	}
	if target.Role == models.OrgRoleOwner {
		return apperr.Forbidden("The organization owner cannot be removed")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamIDs := tx.Model(&models.Team{}).Select("id").Where("organization_id = ?", orgID)
		if err := tx.Where("user_id = ? AND team_id IN (?)", userID, teamIDs).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&target).Error
	})
}

func (s *OrganizationService) membership(ctx context.Context, orgID, userID string) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", orgID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check organization: %w", err)
		}
		if count == 0 {
			return nil, apperr.NotFound("Organization not found")
		}
		return nil, apperr.Forbidden("You are not a member of this organization")
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &m, nil
}
