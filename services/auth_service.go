// services/auth_service.go - registration, login and self-service account management
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type AuthService struct {
	db           *gorm.DB
	log          *zap.Logger
	tokens       *utils.TokenIssuer
	adminPattern *regexp.Regexp
	bcryptCost   int
}

func NewAuthService(db *gorm.DB, log *zap.Logger, tokens *utils.TokenIssuer, adminPattern *regexp.Regexp) *AuthService {
	return &AuthService{
		db:           db,
		log:          logging.OrNop(log),
		tokens:       tokens,
		adminPattern: adminPattern,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// Register creates an account. Emails matching the admin pattern get the ADMIN role.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := models.RoleUser
	if s.adminPattern != nil && s.adminPattern.MatchString(email) {
		role = models.RoleAdmin
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		Role:         role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return s.issue(user)
}

// Login verifies credentials and records the login time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("Account is suspended")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		s.log.Warn("failed to record login time", zap.Error(err), zap.String("user_id", user.ID))
	}
	user.LastLoginAt = &now

	return s.issue(&user)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Manager").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return &user, nil
}

// UpdateProfile changes the caller's name and/or email.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, name, email *string) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = strings.TrimSpace(*name)
	}
	if email != nil {
		e := normalizeEmail(*email)
		if err := validateEmail(e); err != nil {
			return nil, err
		}
		if e != user.Email {
			taken, err := s.emailTaken(ctx, e, userID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperr.Conflict("Email already in use")
			}
			updates["email"] = e
		}
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("Email already in use")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Me(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return apperr.Unauthorized("Current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("password_hash", string(hash)).Error
}

// DeleteAccount hard-deletes the caller and the tasks they created.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.Me(ctx, userID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return purgeUser(tx, userID)
	}); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.log.Info("account deleted", zap.String("user_id", userID))
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.BadRequest("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.BadRequest("Invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.BadRequest(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	return nil
}
