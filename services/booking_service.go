package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/observability"
	"github.com/gymdash/gymdash-api/repository"
	"gorm.io/gorm"
)

// publishTimeout bounds event delivery after a committed booking change
const publishTimeout = 5 * time.Second

// BookingService admits and cancels bookings against activity capacity
type BookingService struct {
	db         *gorm.DB
	activities *repository.ActivityRepository
	bookings   *repository.BookingRepository
	publisher  BookingPublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewBookingService creates a booking service. A nil publisher drops events.
func NewBookingService(db *gorm.DB, publisher BookingPublisher, logger *slog.Logger) *BookingService {
	if publisher == nil {
		publisher = NoopBookingPublisher{}
	}
	return &BookingService{
		db:         db,
		activities: repository.NewActivityRepository(db),
		bookings:   repository.NewBookingRepository(db),
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used to decide whether an activity started
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Book reserves a spot on the activity for user. The activity row is locked for
// the duration of the check so concurrent bookings cannot exceed capacity.
// A previously cancelled booking is reactivated instead of inserting a new row.
func (s *BookingService) Book(ctx context.Context, user *models.User, activityID uint) (*models.ActivityBooking, error) {
	var booking *models.ActivityBooking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		activities := s.activities.WithTx(tx)
		bookings := s.bookings.WithTx(tx)

		activity, err := activities.GetForUpdate(ctx, activityID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrActivityNotFound
		}
		if err != nil {
			return err
		}
		if activity.HasStarted(s.now()) {
			return ErrActivityStarted
		}

		existing, err := bookings.FindByUserAndActivity(ctx, user.ID, activity.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing != nil && existing.Status != models.BookingCancelled {
			return ErrAlreadyBooked
		}

		confirmed, err := bookings.CountConfirmed(ctx, activity.ID)
		if err != nil {
			return err
		}
		if confirmed >= int64(activity.MaxCapacity) {
			return ErrActivityFull
		}

		if existing != nil {
			if err := bookings.SetStatus(ctx, existing, models.BookingConfirmed, activity.CreditsRequired); err != nil {
				return err
			}
			existing.Status = models.BookingConfirmed
			existing.CreditsUsed = activity.CreditsRequired
			booking = existing
			return nil
		}

		booking = &models.ActivityBooking{
			UserID:      user.ID,
			ActivityID:  activity.ID,
			CreditsUsed: activity.CreditsRequired,
			Status:      models.BookingConfirmed,
		}
		if err := bookings.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyBooked
			}
			return err
		}
		return nil
	})
	if err != nil {
		observability.ObserveBooking(observability.BookingRejected, rejectionReason(err))
		if isBookingRuleError(err) {
			return nil, err
		}
		s.logger.Error("failed to book activity",
			slog.Uint64("activity_id", uint64(activityID)),
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to book activity: %w", err)
	}

	observability.ObserveBooking(observability.BookingConfirmed, "")
	s.publish(ctx, EventBookingConfirmed, booking)
	return booking, nil
}

// Cancel releases the user's live booking on the activity. Bookings on an
// activity that already started cannot be cancelled.
func (s *BookingService) Cancel(ctx context.Context, user *models.User, activityID uint) (*models.ActivityBooking, error) {
	var booking *models.ActivityBooking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		activity, err := s.activities.WithTx(tx).GetForUpdate(ctx, activityID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrActivityNotFound
		}
		if err != nil {
			return err
		}

		bookings := s.bookings.WithTx(tx)
		existing, err := bookings.FindByUserAndActivity(ctx, user.ID, activity.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if existing.Status == models.BookingCancelled {
			return ErrBookingNotFound
		}
		if activity.HasStarted(s.now()) {
			return ErrActivityStarted
		}

		if err := bookings.SetStatus(ctx, existing, models.BookingCancelled, 0); err != nil {
			return err
		}
		existing.Status = models.BookingCancelled
		existing.CreditsUsed = 0
		booking = existing
		return nil
	})
	if err != nil {
		if isBookingRuleError(err) {
			return nil, err
		}
		s.logger.Error("failed to cancel booking",
			slog.Uint64("activity_id", uint64(activityID)),
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	observability.ObserveBooking(observability.BookingCancelled, "")
	s.publish(ctx, EventBookingCancelled, booking)
	return booking, nil
}

// ListForUser returns the user's bookings with their activities, soonest first
func (s *BookingService) ListForUser(ctx context.Context, userID uint) ([]models.ActivityBooking, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return bookings, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *models.ActivityBooking) {
	event := BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		ActivityID:  booking.ActivityID,
		CreditsUsed: booking.CreditsUsed,
		OccurredAt:  s.now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		observability.ObserveBookingEventFailure()
		s.logger.Warn("failed to publish booking event",
			slog.String("type", eventType),
			slog.Uint64("booking_id", uint64(booking.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func isBookingRuleError(err error) bool {
	return errors.Is(err, ErrActivityNotFound) ||
		errors.Is(err, ErrActivityStarted) ||
		errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrActivityFull) ||
		errors.Is(err, ErrBookingNotFound)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrActivityStarted):
		return "started"
	case errors.Is(err, ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrActivityFull):
		return "full"
	default:
		return "error"
	}
}
