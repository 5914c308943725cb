package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/repository"
	"gorm.io/gorm"
)

// UpdateUserInput is a partial profile update; nil fields are left unchanged
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
}

// UserService manages user profiles and role assignments
type UserService struct {
	db       *gorm.DB
	users    *repository.UserRepository
	roles    *repository.RoleRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUserService creates a user service
func NewUserService(db *gorm.DB, logger *slog.Logger) *UserService {
	return &UserService{
		db:       db,
		users:    repository.NewUserRepository(db),
		roles:    repository.NewRoleRepository(db),
		validate: validator.New(),
		logger:   logger,
	}
}

// SeedRoles makes sure every fixed role exists
func (s *UserService) SeedRoles(ctx context.Context) error {
	return s.roles.Seed(ctx)
}

// ListUsers returns every user with roles
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return users, nil
}

// ListCoaches returns the users holding the coach role
func (s *UserService) ListCoaches(ctx context.Context) ([]models.User, error) {
	coaches, err := s.users.ListByRole(ctx, models.RoleCoach)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return coaches, nil
}

// GetUser loads a user on behalf of actor, who must be an admin or the user
func (s *UserService) GetUser(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	if !canManage(actor, id) {
		return nil, ErrForbidden
	}
	return s.getUser(ctx, id)
}

// UpdateUser applies a partial profile update on behalf of actor
func (s *UserService) UpdateUser(ctx context.Context, actor *models.User, id uint, input UpdateUserInput) (*models.User, error) {
	if !canManage(actor, id) {
		return nil, ErrForbidden
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	fields, err := s.updateFields(input)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return user, nil
	}

	if email, ok := fields["email"].(string); ok && email != user.Email {
		taken, err := s.users.EmailExists(ctx, email, user.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	if err := s.users.Update(ctx, user, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to update user", slog.Uint64("user_id", uint64(id)), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.getUser(ctx, id)
}

// GetRoles returns the roles held by a user
func (s *UserService) GetRoles(ctx context.Context, id uint) ([]models.RoleName, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return nil, err
	}
	roles, err := s.roles.GetUserRoles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return roles, nil
}

// HasRole reports whether the user holds the role
func (s *UserService) HasRole(ctx context.Context, id uint, role models.RoleName) (bool, error) {
	return s.roles.HasRole(ctx, id, role)
}

// AddRole links a role to the user. It returns false when the role is unknown
// or already held.
func (s *UserService) AddRole(ctx context.Context, id uint, role models.RoleName) (bool, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return false, err
	}
	added, err := s.roles.AddRole(ctx, id, role)
	if err != nil {
		return false, fmt.Errorf("failed to add role: %w", err)
	}
	if added {
		s.logger.Info("role added", slog.Uint64("user_id", uint64(id)), slog.String("role", string(role)))
	}
	return added, nil
}

// RemoveRole unlinks a role from the user. It returns false when the role is
// unknown or not held.
func (s *UserService) RemoveRole(ctx context.Context, id uint, role models.RoleName) (bool, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return false, err
	}
	removed, err := s.roles.RemoveRole(ctx, id, role)
	if err != nil {
		return false, fmt.Errorf("failed to remove role: %w", err)
	}
	if removed {
		s.logger.Info("role removed", slog.Uint64("user_id", uint64(id)), slog.String("role", string(role)))
	}
	return removed, nil
}

// SetRoles replaces the user's roles atomically, skipping unknown names, and
// returns the resulting role set
func (s *UserService) SetRoles(ctx context.Context, id uint, roles []models.RoleName) ([]models.RoleName, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return nil, err
	}
	if err := s.roles.SetRoles(ctx, id, roles); err != nil {
		s.logger.Error("failed to set roles", slog.Uint64("user_id", uint64(id)), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to set roles: %w", err)
	}
	return s.roles.GetUserRoles(ctx, id)
}

func (s *UserService) getUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetWithRoles(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return user, nil
}

func (s *UserService) updateFields(input UpdateUserInput) (map[string]interface{}, error) {
	verr := NewValidationError()
	fields := map[string]interface{}{}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			verr.Add("email", "must be a valid email address")
		}
		fields["email"] = email
	}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			verr.Add("first_name", "must not be empty")
		}
		fields["first_name"] = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			verr.Add("last_name", "must not be empty")
		}
		fields["last_name"] = name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if err := s.validate.Var(phone, "required,e164"); err != nil {
			verr.Add("phone", "must be an E.164 phone number such as +15555550100")
		}
		fields["phone"] = phone
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return fields, nil
}

func canManage(actor *models.User, id uint) bool {
	return actor != nil && (actor.ID == id || actor.HasRole(models.RoleAdmin))
}
