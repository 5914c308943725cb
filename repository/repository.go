// Package repository holds the gorm-backed stores for users, roles, activities and bookings.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is the CRUD surface shared by every entity store
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	GetByID(ctx context.Context, id uint) (*T, error)
	Update(ctx context.Context, entity *T, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

// GormRepository implements Repository for any gorm model
type GormRepository[T any] struct {
	db *gorm.DB
}

// NewGormRepository binds a generic repository to a connection or transaction
func NewGormRepository[T any](db *gorm.DB) *GormRepository[T] {
	return &GormRepository[T]{db: db}
}

// Conn returns the session scoped to ctx
func (r *GormRepository[T]) Conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Create inserts a new row
func (r *GormRepository[T]) Create(ctx context.Context, entity *T) error {
	return translate(r.Conn(ctx).Create(entity).Error)
}

// GetByID loads a row by primary key
func (r *GormRepository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	if err := r.Conn(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err)
	}
	return &entity, nil
}

// Update writes the given columns on an existing row
func (r *GormRepository[T]) Update(ctx context.Context, entity *T, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return translate(r.Conn(ctx).Model(entity).Updates(fields).Error)
}

// Delete removes a row by primary key
func (r *GormRepository[T]) Delete(ctx context.Context, id uint) error {
	result := r.Conn(ctx).Delete(new(T), id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
