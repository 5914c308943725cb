package repository

import (
	"context"

	"github.com/gymdash/gymdash-api/models"
	"gorm.io/gorm"
)

// BookingRepository stores activity bookings
type BookingRepository struct {
	*GormRepository[models.ActivityBooking]
}

// NewBookingRepository creates a booking repository
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{GormRepository: NewGormRepository[models.ActivityBooking](db)}
}

// WithTx binds the repository to a transaction
func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return NewBookingRepository(tx)
}

// FindByUserAndActivity returns the single booking row of a user on an activity
func (r *BookingRepository) FindByUserAndActivity(ctx context.Context, userID, activityID uint) (*models.ActivityBooking, error) {
	var booking models.ActivityBooking
	err := r.Conn(ctx).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// CountConfirmed counts the bookings that occupy a spot on the activity
func (r *BookingRepository) CountConfirmed(ctx context.Context, activityID uint) (int64, error) {
	var count int64
	err := r.Conn(ctx).
		Model(&models.ActivityBooking{}).
		Where("activity_id = ? AND status = ?", activityID, models.BookingConfirmed).
		Count(&count).Error
	return count, err
}

// SetStatus moves a booking to a new status and records the credits charged
func (r *BookingRepository) SetStatus(ctx context.Context, booking *models.ActivityBooking, status models.BookingStatus, creditsUsed int) error {
	return r.Update(ctx, booking, map[string]interface{}{
		"status":       status,
		"credits_used": creditsUsed,
	})
}

// ListByUser returns the bookings of a user with their activity and coach,
// ordered by activity start time
func (r *BookingRepository) ListByUser(ctx context.Context, userID uint) ([]models.ActivityBooking, error) {
	var bookings []models.ActivityBooking
	err := r.Conn(ctx).
		Preload("Activity").
		Preload("Activity.Coach").
		Joins("JOIN activities ON activities.id = activity_bookings.activity_id").
		Where("activity_bookings.user_id = ?", userID).
		Order("activities.start_time ASC, activity_bookings.id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
