package models

import (
	"time"
)

// BookingStatus is the lifecycle state of an activity booking
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingWaitlist  BookingStatus = "waitlist"
)

// IsValid reports whether the status belongs to the closed status set
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingConfirmed, BookingCancelled, BookingWaitlist:
		return true
	}
	return false
}

// ConsumesCapacity reports whether a booking in this status occupies a spot
func (s BookingStatus) ConsumesCapacity() bool {
	return s == BookingConfirmed
}

// Activity represents a scheduled session run by a coach
type Activity struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"not null" json:"name"`
	Description     string            `gorm:"type:text;not null" json:"description"`
	CoachID         uint              `gorm:"not null;index" json:"coach_id"` // foreign key to users table
	Coach           User              `gorm:"foreignKey:CoachID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	StartTime       time.Time         `gorm:"not null;index" json:"start_time"`
	DurationMinutes int               `gorm:"not null;check:duration_minutes > 0" json:"duration"`
	CreditsRequired int               `gorm:"not null;default:0;check:credits_required >= 0" json:"credits_required"`
	MaxCapacity     int               `gorm:"not null;check:max_capacity > 0" json:"max_capacity"`
	ImageS3Key      *string           `gorm:"column:image_s3_key" json:"-"` // nullable, set when a cover image is uploaded
	Bookings        []ActivityBooking `gorm:"foreignKey:ActivityID" json:"-"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName specifies the table name for the Activity model
func (Activity) TableName() string {
	return "activities"
}

// EndTime is derived from the start time and duration
func (a *Activity) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// HasStarted reports whether the activity starts before now
func (a *Activity) HasStarted(now time.Time) bool {
	return a.StartTime.Before(now)
}

// ActivityBooking links a user to an activity
type ActivityBooking struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"not null;uniqueIndex:idx_booking_user_activity" json:"user_id"`
	User        User          `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ActivityID  uint          `gorm:"not null;index;uniqueIndex:idx_booking_user_activity" json:"activity_id"`
	Activity    *Activity     `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	CreditsUsed int           `gorm:"not null;default:0" json:"credits_used"`
	Status      BookingStatus `gorm:"not null;size:16;default:'confirmed';index" json:"booking_status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the ActivityBooking model
func (ActivityBooking) TableName() string {
	return "activity_bookings"
}
