package repository

import (
	"context"
	"errors"

	"github.com/gymdash/gymdash-api/models"
	"gorm.io/gorm"
)

// RoleRepository manages the role reference data and user-role links
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a role repository
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// WithTx binds the repository to a transaction
func (r *RoleRepository) WithTx(tx *gorm.DB) *RoleRepository {
	return NewRoleRepository(tx)
}

// Seed inserts the fixed role set, leaving existing rows untouched
func (r *RoleRepository) Seed(ctx context.Context) error {
	for _, name := range models.AllRoles {
		role := models.Role{Name: name}
		if err := r.db.WithContext(ctx).Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByName looks up a role row; unknown names yield ErrNotFound
func (r *RoleRepository) FindByName(ctx context.Context, name models.RoleName) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// AddRole links the role to the user. It returns false without writing when the
// role is unknown or already held.
func (r *RoleRepository) AddRole(ctx context.Context, userID uint, name models.RoleName) (bool, error) {
	role, err := r.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	held, err := r.hasRoleID(ctx, userID, role.ID)
	if err != nil || held {
		return false, err
	}

	if err := r.db.WithContext(ctx).Create(&models.UserRole{UserID: userID, RoleID: role.ID}).Error; err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveRole unlinks the role from the user. It returns false when the role is
// unknown or not currently held.
func (r *RoleRepository) RemoveRole(ctx context.Context, userID uint, name models.RoleName) (bool, error) {
	role, err := r.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, role.ID).
		Delete(&models.UserRole{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetRoles replaces every role link of the user in a single transaction.
// Names outside the reference set are skipped.
func (r *RoleRepository) SetRoles(ctx context.Context, userID uint, names []models.RoleName) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}

		var roles []models.Role
		if err := tx.Where("name IN ?", names).Order("id").Find(&roles).Error; err != nil {
			return err
		}
		for _, role := range roles {
			if err := tx.Create(&models.UserRole{UserID: userID, RoleID: role.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// HasRole reports whether the user holds the role
func (r *RoleRepository) HasRole(ctx context.Context, userID uint, name models.RoleName) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, name).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserRoles returns the role names held by the user, sorted by name
func (r *RoleRepository) GetUserRoles(ctx context.Context, userID uint) ([]models.RoleName, error) {
	names := []models.RoleName{}
	err := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *RoleRepository) hasRoleID(ctx context.Context, userID, roleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	return count > 0, err
}
