package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/repository"
	"gorm.io/gorm"
)

// ActivityFilter holds the optional predicates of an activity listing.
// All supplied predicates must match.
type ActivityFilter struct {
	CoachID           *uint
	StartDate         *time.Time // start_time >= 00:00 UTC of this day
	EndDate           *time.Time // start_time <= 23:59:59.999999999 UTC of this day
	MinAvailableSpots *int
	IncludePast       bool
}

// ActivityView is an activity with its coach name and derived occupancy
type ActivityView struct {
	models.Activity
	EndTime        time.Time         `json:"end_time"`
	CoachFirstName string            `json:"coach_first_name"`
	CoachLastName  string            `json:"coach_last_name"`
	AvailableSpots int               `json:"available_spots"`
	SpotsLeft      int               `json:"spots_left"`
	AttendeeCount  int               `json:"attendee_count"`
	Attendees      []AttendeeSummary `json:"attendees"`
	ImageURL       string            `json:"image_url,omitempty"`
}

// CreateActivityInput is the payload of a new activity
type CreateActivityInput struct {
	Name            string
	Description     string
	CoachID         uint
	StartTime       time.Time
	DurationMinutes int
	CreditsRequired int
	MaxCapacity     int
}

// ActivityService lists, creates and decorates activities
type ActivityService struct {
	db         *gorm.DB
	activities *repository.ActivityRepository
	users      *repository.UserRepository
	images     ImageService
	logger     *slog.Logger
	now        func() time.Time
}

// NewActivityService creates an activity service. images may be nil when no
// object storage is configured.
func NewActivityService(db *gorm.DB, images ImageService, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		db:         db,
		activities: repository.NewActivityRepository(db),
		users:      repository.NewUserRepository(db),
		images:     images,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for past-activity filtering
func (s *ActivityService) WithClock(now func() time.Time) *ActivityService {
	s.now = now
	return s
}

// ListActivities returns the activities matching filter in ascending start order.
// Date and coach predicates run in the database, min_available_spots is applied
// after occupancy is derived.
func (s *ActivityService) ListActivities(ctx context.Context, filter ActivityFilter) ([]ActivityView, error) {
	query := repository.ActivityQuery{CoachID: filter.CoachID}

	if filter.StartDate != nil {
		from := startOfDay(*filter.StartDate)
		query.StartsFrom = &from
	}
	if filter.EndDate != nil {
		to := startOfDay(*filter.EndDate).Add(24*time.Hour - time.Nanosecond)
		query.StartsTo = &to
	}
	if !filter.IncludePast {
		now := s.now().UTC()
		if query.StartsFrom == nil || query.StartsFrom.Before(now) {
			query.StartsFrom = &now
		}
	}

	activities, err := s.activities.List(ctx, query)
	if err != nil {
		s.logger.Error("failed to list activities", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	views := make([]ActivityView, 0, len(activities))
	for i := range activities {
		view := s.buildView(ctx, &activities[i])
		if filter.MinAvailableSpots != nil && view.AvailableSpots < *filter.MinAvailableSpots {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// GetActivity returns one activity, past or future
func (s *ActivityService) GetActivity(ctx context.Context, id uint) (*ActivityView, error) {
	activity, err := s.activities.GetDetailed(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	view := s.buildView(ctx, activity)
	return &view, nil
}

// CreateActivity persists a new activity on behalf of actor. Coaches may only
// schedule themselves; admins may schedule any coach. The referenced user must
// hold the coach role.
func (s *ActivityService) CreateActivity(ctx context.Context, actor *models.User, input CreateActivityInput) (*ActivityView, error) {
	if err := validateActivityInput(input); err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleAdmin) && input.CoachID != actor.ID {
		return nil, ErrForbidden
	}

	activity := models.Activity{
		Name:            strings.TrimSpace(input.Name),
		Description:     strings.TrimSpace(input.Description),
		CoachID:         input.CoachID,
		StartTime:       input.StartTime.UTC(),
		DurationMinutes: input.DurationMinutes,
		CreditsRequired: input.CreditsRequired,
		MaxCapacity:     input.MaxCapacity,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		coach, err := s.users.WithTx(tx).GetWithRoles(ctx, input.CoachID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCoach
		}
		if err != nil {
			return err
		}
		if !coach.HasRole(models.RoleCoach) {
			return ErrInvalidCoach
		}

		if err := s.activities.WithTx(tx).Create(ctx, &activity); err != nil {
			return err
		}
		activity.Coach = *coach
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCoach) {
			return nil, err
		}
		s.logger.Error("failed to create activity", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	s.logger.Info("activity created",
		slog.Uint64("activity_id", uint64(activity.ID)),
		slog.Uint64("coach_id", uint64(activity.CoachID)),
	)

	view := s.buildView(ctx, &activity)
	return &view, nil
}

// AttachImage stores a cover image for the activity and replaces any previous one
func (s *ActivityService) AttachImage(ctx context.Context, actor *models.User, activityID uint, fileHeader *multipart.FileHeader) (*ActivityView, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}

	activity, err := s.activities.GetByID(ctx, activityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	if !actor.HasRole(models.RoleAdmin) && activity.CoachID != actor.ID {
		return nil, ErrForbidden
	}

	key, err := s.images.UploadImage(ctx, activity.ID, fileHeader)
	if err != nil {
		return nil, err
	}

	// Updates writes the new key back through ImageS3Key, so keep a copy of the old value.
	var previous string
	if activity.ImageS3Key != nil {
		previous = *activity.ImageS3Key
	}
	if err := s.activities.Update(ctx, activity, map[string]interface{}{"image_s3_key": key}); err != nil {
		if delErr := s.images.DeleteImage(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned image", slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, fmt.Errorf("failed to save image reference: %w", err)
	}

	if previous != "" && previous != key {
		if err := s.images.DeleteImage(ctx, previous); err != nil {
			s.logger.Warn("failed to delete previous image", slog.String("key", previous), slog.String("error", err.Error()))
		}
	}

	return s.GetActivity(ctx, activity.ID)
}

func (s *ActivityService) buildView(ctx context.Context, activity *models.Activity) ActivityView {
	availability := ComputeAvailability(activity)

	view := ActivityView{
		Activity:       *activity,
		EndTime:        activity.EndTime(),
		CoachFirstName: activity.Coach.FirstName,
		CoachLastName:  activity.Coach.LastName,
		AvailableSpots: availability.AvailableSpots,
		SpotsLeft:      availability.AvailableSpots,
		AttendeeCount:  availability.BookedCount,
		Attendees:      availability.Attendees,
	}

	if s.images != nil && activity.ImageS3Key != nil {
		url, err := s.images.GetImageURL(ctx, *activity.ImageS3Key)
		if err != nil {
			s.logger.Warn("failed to presign activity image",
				slog.Uint64("activity_id", uint64(activity.ID)),
				slog.String("error", err.Error()),
			)
		}
		view.ImageURL = url
	}
	return view
}

func validateActivityInput(input CreateActivityInput) error {
	verr := NewValidationError()
	if strings.TrimSpace(input.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		verr.Add("description", "is required")
	}
	if input.CoachID == 0 {
		verr.Add("coach_id", "is required")
	}
	if input.StartTime.IsZero() {
		verr.Add("start_time", "is required")
	}
	if input.DurationMinutes <= 0 {
		verr.Add("duration", "must be a positive number of minutes")
	}
	if input.CreditsRequired < 0 {
		verr.Add("credits_required", "must not be negative")
	}
	if input.MaxCapacity <= 0 {
		verr.Add("max_capacity", "must be a positive integer")
	}
	return verr.OrNil()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
