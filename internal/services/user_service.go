package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/utils"
)

const minPasswordLength = 6

// UserService manages accounts and credentials.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(users repository.UserRepository, bcryptCost int, log *zap.Logger) *UserService {
	if bcryptCost < utils.MinBcryptCost {
		bcryptCost = utils.MinBcryptCost
	}
	return &UserService{users: users, bcryptCost: bcryptCost, logger: log}
}

type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Address  string
	Roles    []models.Role
}

// Create registers a user. Emails are unique case-insensitively.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, newValidationError("email", "is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, newValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	roles := make([]string, 0, len(in.Roles))
	for _, r := range in.Roles {
		roles = append(roles, string(r))
	}
	if len(roles) == 0 {
		roles = append(roles, string(models.RoleUser))
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Roles:        roles,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("email", logger.MaskEmail(email)))
	return user, nil
}

// VerifyPassword reports whether hash was produced from plain.
func (s *UserService) VerifyPassword(plain, hash string) bool {
	return utils.CheckPassword(hash, plain)
}

// Authenticate returns the user owning the credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !s.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err, "get user")
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id uint, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return translateRepoErr(err, "change password")
	}
	if !s.VerifyPassword(oldPassword, user.PasswordHash) {
		return newValidationError("password", "current password is incorrect")
	}
	if len(newPassword) < minPasswordLength {
		return newValidationError("new_password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return translateRepoErr(s.users.Update(ctx, id, repository.UserUpdate{PasswordHash: &hash}), "change password")
}

func (s *UserService) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return newValidationError("role", "must be User or Admin")
	}
	if err := s.users.Update(ctx, id, repository.UserUpdate{Roles: []string{string(role)}}); err != nil {
		return translateRepoErr(err, "update role")
	}
	s.logger.Info("user role updated", zap.Uint("user_id", id), zap.String("role", string(role)))
	return nil
}

// IsAdmin reports whether the account exists and holds the Admin role.
func (s *UserService) IsAdmin(ctx context.Context, id uint) (bool, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if isRepoNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return user.HasRole(models.RoleAdmin), nil
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// ProfileUpdate holds the self-service profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
	Avatar  *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*models.User, error) {
	update := repository.UserUpdate{
		Name:    trimmed(in.Name),
		Phone:   trimmed(in.Phone),
		Address: trimmed(in.Address),
		Avatar:  trimmed(in.Avatar),
	}
	if err := s.users.Update(ctx, id, update); err != nil {
		return nil, translateRepoErr(err, "update profile")
	}
	return s.Get(ctx, id)
}

// EnsureAdmin creates the bootstrap administrator when no account uses the email yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if !existing.HasRole(models.RoleAdmin) {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account", zap.String("email", logger.MaskEmail(email)))
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	_, err = s.Create(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		Name:     "Administrator",
		Roles:    []models.Role{models.RoleAdmin},
	})
	if err != nil && !errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
