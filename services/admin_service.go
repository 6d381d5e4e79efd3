// services/admin_service.go - user administration; every mutation is audited
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
	"taskhub/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// maxManagerDepth bounds the walk up a management chain.
const maxManagerDepth = 100

// AdminActor is the authenticated administrator plus request metadata for the audit trail.
type AdminActor struct {
	policy.Capabilities
	IP        string
	UserAgent string
}

func (a AdminActor) audit() AuditActor {
	return AuditActor{ID: a.UserID, Email: a.Email, IP: a.IP, UserAgent: a.UserAgent}
}

type UserFilter struct {
	Search string
	Role   models.Role
	Active *bool
}

type UserPage struct {
	Users      []models.User `json:"users"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

type AdminService struct {
	db         *gorm.DB
	log        *zap.Logger
	audit      *AuditService
	bcryptCost int
}

func NewAdminService(db *gorm.DB, log *zap.Logger, audit *AuditService) *AdminService {
	return &AdminService{db: db, log: logging.OrNop(log), audit: audit, bcryptCost: bcrypt.DefaultCost}
}

// ================== READS ==================

func (s *AdminService) ListUsers(ctx context.Context, f UserFilter, page, limit int) (*UserPage, error) {
	page, limit, offset := utils.Page(page, limit)

	filter := func(q *gorm.DB) *gorm.DB {
		if term := strings.TrimSpace(f.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("(LOWER(email) LIKE ? OR LOWER(name) LIKE ?)", like, like)
		}
		if f.Role != "" {
			q = q.Where("role = ?", f.Role)
		}
		if f.Active != nil {
			q = q.Where("is_active = ?", *f.Active)
		}
		return q
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	users := []models.User{}
	err := s.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &UserPage{
		Users:      users,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: utils.TotalPages(total, limit),
	}, nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Manager").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "User not found")
	}
	return &user, nil
}

// ================== MUTATIONS ==================

func (s *AdminService) CreateUser(ctx context.Context, actor AdminActor, in CreateUserInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("Invalid role")
	}
	if role.AtLeast(models.RoleAdmin) && actor.Role != models.RoleSuperAdmin {
		return nil, apperr.Forbidden("Only a super admin can create administrators")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   user.ID,
		Action:     models.AuditUserCreated,
		Actor:      actor.audit(),
		Changes:    models.Changes{"role": {Old: nil, New: role}},
		Metadata:   models.UserAdminMetadata{TargetEmail: user.Email},
	})
	return user, nil
}

// UpdateRole changes a user's role under policy.CanChangeRole.
func (s *AdminService) UpdateRole(ctx context.Context, actor AdminActor, targetID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest("Invalid role")
	}
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == target.ID {
		return nil, apperr.Forbidden("You cannot change your own role")
	}
	if !policy.CanChangeRole(actor.Capabilities, target, role) {
		return nil, apperr.Forbidden("Only a super admin can grant or revoke administrator roles")
	}
	if target.Role == role {
		return target, nil
	}

	old := target.Role
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", target.ID).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	target.Role = role

	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   target.ID,
		Action:     models.AuditUserRoleChanged,
		Actor:      actor.audit(),
		Changes:    models.Changes{"role": {Old: old, New: role}},
		Metadata:   models.UserAdminMetadata{TargetEmail: target.Email},
	})
	return target, nil
}

// SetActive suspends (false) or reactivates (true) a user.
func (s *AdminService) SetActive(ctx context.Context, actor AdminActor, targetID string, active bool) (*models.User, error) {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !active && !policy.CanSuspend(actor.Capabilities, target) {
		if actor.UserID == target.ID {
			return nil, apperr.Forbidden("You cannot suspend yourself")
		}
		return nil, apperr.Forbidden("A super admin cannot be suspended")
	}
	if target.IsActive == active {
		return target, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", target.ID).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}
	target.IsActive = active

	action := models.AuditUserSuspended
	if active {
		action = models.AuditUserActivated
	}
	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   target.ID,
		Action:     action,
		Actor:      actor.audit(),
		Changes:    models.Changes{"isActive": {Old: !active, New: active}},
		Metadata:   models.UserAdminMetadata{TargetEmail: target.Email},
	})
	return target, nil
}

// SetManager points targetID at managerID, or clears it when managerID is nil.
// Self references and cycles in the management chain are rejected.
func (s *AdminService) SetManager(ctx context.Context, actor AdminActor, targetID string, managerID *string) (*models.User, error) {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	managerID = emptyToNil(managerID)

	if managerID != nil {
		if *managerID == target.ID {
			return nil, apperr.BadRequest("A user cannot be their own manager")
		}
		if _, err := s.GetUser(ctx, *managerID); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.NotFound("Manager not found")
			}
			return nil, err
		}
		if err := s.checkManagerChain(ctx, target.ID, *managerID); err != nil {
			return nil, err
		}
	}
	if sameID(target.ManagerID, managerID) {
		return target, nil
	}

	var value interface{} = gorm.Expr("NULL")
	if managerID != nil {
		value = *managerID
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", target.ID).Update("manager_id", value).Error; err != nil {
		return nil, fmt.Errorf("set manager: %w", err)
	}

	old := target.ManagerID
	target.ManagerID = managerID
	target.Manager = nil

	meta := models.UserAdminMetadata{TargetEmail: target.Email}
	if managerID != nil {
		meta.ManagerID = *managerID
	}
	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   target.ID,
		Action:     models.AuditUserManagerSet,
		Actor:      actor.audit(),
		Changes:    models.Changes{"managerId": {Old: old, New: managerID}},
		Metadata:   meta,
	})
	return target, nil
}

// checkManagerChain walks up from managerID and fails if it reaches targetID.
func (s *AdminService) checkManagerChain(ctx context.Context, targetID, managerID string) error {
	current := managerID
	for i := 0; i < maxManagerDepth; i++ {
		var next models.User
		err := s.db.WithContext(ctx).Select("id", "manager_id").Where("id = ?", current).First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("walk management chain: %w", err)
		}
		if next.ManagerID == nil {
			return nil
		}
		if *next.ManagerID == targetID {
			return apperr.BadRequest("Circular management chain")
		}
		current = *next.ManagerID
	}
	return apperr.BadRequest("Management chain is too deep")
}

func (s *AdminService) ResetPassword(ctx context.Context, actor AdminActor, targetID, password string) error {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if target.Role.AtLeast(models.RoleAdmin) && actor.Role != models.RoleSuperAdmin && actor.UserID != target.ID {
		return apperr.Forbidden("Only a super admin can reset an administrator's password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", target.ID).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   target.ID,
		Action:     models.AuditUserPasswordReset,
		Actor:      actor.audit(),
		Metadata:   models.UserAdminMetadata{TargetEmail: target.Email},
	})
	return nil
}

// DeleteUser hard-deletes a user and the tasks they created.
func (s *AdminService) DeleteUser(ctx context.Context, actor AdminActor, targetID string) error {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteUser(actor.Capabilities, target) {
		if actor.UserID == target.ID {
			return apperr.Forbidden("You cannot delete your own account here")
		}
		return apperr.Forbidden("A super admin cannot be deleted")
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return purgeUser(tx, target.ID)
	}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   target.ID,
		Action:     models.AuditUserDeleted,
		Actor:      actor.audit(),
		Metadata:   models.UserAdminMetadata{TargetEmail: target.Email},
	})
	return nil
}
