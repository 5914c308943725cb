package repository

import (
	"context"

	"github.com/gymdash/gymdash-api/models"
	"gorm.io/gorm"
)

// UserRepository stores users and looks them up with their roles
type UserRepository struct {
	*GormRepository[models.User]
}

// NewUserRepository creates a user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{GormRepository: NewGormRepository[models.User](db)}
}

// WithTx binds the repository to a transaction
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return NewUserRepository(tx)
}

// GetByEmail finds a user by email with roles preloaded
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.Conn(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetWithRoles finds a user by id with roles preloaded
func (r *UserRepository) GetWithRoles(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.Conn(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// EmailExists reports whether another user already owns the email
func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	query := r.Conn(ctx).Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns every user ordered by id
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.Conn(ctx).Preload("Roles").Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListByRole returns users holding the role, ordered by last then first name
func (r *UserRepository) ListByRole(ctx context.Context, role models.RoleName) ([]models.User, error) {
	var users []models.User
	err := r.Conn(ctx).
		Preload("Roles").
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", role).
		Order("users.last_name, users.first_name, users.id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
