package repository

import (
	"context"
	"time"

	"github.com/gymdash/gymdash-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityQuery holds the database-side predicates of an activity listing.
// Nil fields are not applied.
type ActivityQuery struct {
	CoachID    *uint
	StartsFrom *time.Time // start_time >= StartsFrom
	StartsTo   *time.Time // start_time <= StartsTo
}

// ActivityRepository stores activities and loads them with coach and bookings
type ActivityRepository struct {
	*GormRepository[models.Activity]
}

// NewActivityRepository creates an activity repository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{GormRepository: NewGormRepository[models.Activity](db)}
}

// WithTx binds the repository to a transaction
func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return NewActivityRepository(tx)
}

// List returns matching activities ordered by ascending start time, each with
// its coach and every booking (with the booking user) preloaded.
func (r *ActivityRepository) List(ctx context.Context, q ActivityQuery) ([]models.Activity, error) {
	query := r.detailed(ctx)

	if q.CoachID != nil {
		query = query.Where("activities.coach_id = ?", *q.CoachID)
	}
	if q.StartsFrom != nil {
		query = query.Where("activities.start_time >= ?", *q.StartsFrom)
	}
	if q.StartsTo != nil {
		query = query.Where("activities.start_time <= ?", *q.StartsTo)
	}

	var activities []models.Activity
	if err := query.Order("activities.start_time ASC, activities.id ASC").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// GetDetailed loads one activity with coach and bookings
func (r *ActivityRepository) GetDetailed(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := r.detailed(ctx).First(&activity, id).Error; err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

// GetForUpdate loads an activity and locks its row until the surrounding
// transaction ends. SQLite ignores the lock clause.
func (r *ActivityRepository) GetForUpdate(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	err := r.Conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&activity, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

func (r *ActivityRepository) detailed(ctx context.Context) *gorm.DB {
	return r.Conn(ctx).
		Preload("Coach").
		Preload("Bookings", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_bookings.id ASC")
		}).
		Preload("Bookings.User")
}
