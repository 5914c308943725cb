package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var listNow = time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)

type activityFixture struct {
	db      *gorm.DB
	service *ActivityService
	coachA  models.User
	coachB  models.User
	past    models.Activity
	today   models.Activity
	full    models.Activity
	later   models.Activity
}

// newActivityFixture seeds four activities around listNow:
// past (coach A, yesterday), today (coach A, 2 of 3 spots free),
// full (coach B, tomorrow, 0 of 1 free), later (coach A, in 3 days, empty)
func newActivityFixture(t *testing.T) *activityFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	f := &activityFixture{
		db:      db,
		service: NewActivityService(db, nil, discardLogger()).WithClock(fixedClock(listNow)),
		coachA:  testutil.CreateNamedUser(t, db, "alice@example.com", "Alice", "Anders", models.RoleCoach),
		coachB:  testutil.CreateNamedUser(t, db, "bob@example.com", "Bob", "Brown", models.RoleCoach),
	}
	member := testutil.CreateUser(t, db, "member@example.com", models.RoleClient)
	other := testutil.CreateUser(t, db, "other@example.com", models.RoleClient)

	f.past = testutil.CreateActivity(t, db, f.coachA.ID, "Past", listNow.Add(-24*time.Hour), 5)
	f.today = testutil.CreateActivity(t, db, f.coachA.ID, "Today", listNow.Add(2*time.Hour), 3)
	f.full = testutil.CreateActivity(t, db, f.coachB.ID, "Full", listNow.Add(24*time.Hour), 1)
	f.later = testutil.CreateActivity(t, db, f.coachA.ID, "Later", listNow.Add(72*time.Hour), 4)

	testutil.CreateBooking(t, db, member.ID, f.today.ID, models.BookingConfirmed)
	testutil.CreateBooking(t, db, other.ID, f.today.ID, models.BookingCancelled)
	testutil.CreateBooking(t, db, member.ID, f.full.ID, models.BookingConfirmed)
	return f
}

func ids(views []ActivityView) []uint {
	out := make([]uint, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestActivityService_ListActivities(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ActivityFilter
		want   []uint
	}{
		{
			name:   "defaults exclude past activities",
			filter: ActivityFilter{},
			want:   []uint{f.today.ID, f.full.ID, f.later.ID},
		},
		{
			name:   "include past",
			filter: ActivityFilter{IncludePast: true},
			want:   []uint{f.past.ID, f.today.ID, f.full.ID, f.later.ID},
		},
		{
			name:   "coach filter keeps ascending start order",
			filter: ActivityFilter{CoachID: uintPtr(f.coachA.ID)},
			want:   []uint{f.today.ID, f.later.ID},
		},
		{
			name:   "coach filter with past",
			filter: ActivityFilter{CoachID: uintPtr(f.coachA.ID), IncludePast: true},
			want:   []uint{f.past.ID, f.today.ID, f.later.ID},
		},
		{
			name:   "min available spots drops full activity",
			filter: ActivityFilter{MinAvailableSpots: intPtr(1)},
			want:   []uint{f.today.ID, f.later.ID},
		},
		{
			name:   "min available spots above most capacities",
			filter: ActivityFilter{MinAvailableSpots: intPtr(3), IncludePast: true},
			want:   []uint{f.past.ID, f.later.ID},
		},
		{
			name:   "end date covers the whole day",
			filter: ActivityFilter{EndDate: timePtr(listNow), IncludePast: true},
			want:   []uint{f.past.ID, f.today.ID},
		},
		{
			name:   "start date begins at midnight",
			filter: ActivityFilter{StartDate: timePtr(listNow.Add(24 * time.Hour)), IncludePast: true},
			want:   []uint{f.full.ID, f.later.ID},
		},
		{
			name:   "start date in the past is still bounded by now",
			filter: ActivityFilter{StartDate: timePtr(listNow.Add(-48 * time.Hour))},
			want:   []uint{f.today.ID, f.full.ID, f.later.ID},
		},
		{
			name: "all filters combined",
			filter: ActivityFilter{
				CoachID:           uintPtr(f.coachA.ID),
				StartDate:         timePtr(listNow),
				EndDate:           timePtr(listNow.Add(96 * time.Hour)),
				MinAvailableSpots: intPtr(3),
			},
			want: []uint{f.later.ID},
		},
		{
			name:   "nothing matches",
			filter: ActivityFilter{CoachID: uintPtr(f.coachB.ID), MinAvailableSpots: intPtr(1)},
			want:   []uint{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.service.ListActivities(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(views))

			for _, v := range views {
				if tt.filter.MinAvailableSpots != nil {
					assert.GreaterOrEqual(t, v.AvailableSpots, *tt.filter.MinAvailableSpots)
				}
				if !tt.filter.IncludePast {
					assert.False(t, v.StartTime.Before(listNow), "Past activity %d leaked into results", v.ID)
				}
			}
		})
	}
}

func TestActivityService_ListActivities_Aggregate(t *testing.T) {
	f := newActivityFixture(t)

	views, err := f.service.ListActivities(context.Background(), ActivityFilter{CoachID: uintPtr(f.coachA.ID)})
	require.NoError(t, err)
	require.NotEmpty(t, views)

	today := views[0]
	assert.Equal(t, f.today.ID, today.ID)
	assert.Equal(t, "Alice", today.CoachFirstName)
	assert.Equal(t, "Anders", today.CoachLastName)
	assert.Equal(t, 2, today.AvailableSpots, "Capacity 3 minus one confirmed booking")
	assert.Equal(t, 1, today.AttendeeCount, "Only confirmed bookings are counted")
	assert.Len(t, today.Attendees, 2, "Cancelled bookings are still listed")
	assert.Equal(t, today.StartTime.Add(60*time.Minute), today.EndTime)
}

func TestActivityService_ListActivities_RetrievalError(t *testing.T) {
	f := newActivityFixture(t)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	views, err := f.service.ListActivities(context.Background(), ActivityFilter{})
	assert.True(t, errors.Is(err, ErrRetrieval), "Expected ErrRetrieval, got %v", err)
	assert.Nil(t, views, "No partial results on failure")
}

func TestActivityService_GetActivity(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()

	view, err := f.service.GetActivity(ctx, f.past.ID)
	require.NoError(t, err, "Past activities are reachable by id")
	assert.Equal(t, "Past", view.Name)

	_, err = f.service.GetActivity(ctx, 9999)
	assert.True(t, errors.Is(err, ErrActivityNotFound))
}

func validActivityInput(coachID uint) CreateActivityInput {
	return CreateActivityInput{
		Name:            "Morning Yoga",
		Description:     "Gentle flow",
		CoachID:         coachID,
		StartTime:       listNow.Add(48 * time.Hour),
		DurationMinutes: 45,
		CreditsRequired: 2,
		MaxCapacity:     12,
	}
}

func TestActivityService_CreateActivity(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, "admin@example.com", models.RoleAdmin)

	view, err := f.service.CreateActivity(ctx, &admin, validActivityInput(f.coachB.ID))
	require.NoError(t, err)

	assert.NotZero(t, view.ID)
	assert.Equal(t, 12, view.SpotsLeft, "Spots left starts at max capacity")
	assert.Equal(t, 12, view.AvailableSpots)
	assert.Equal(t, 0, view.AttendeeCount)
	assert.NotNil(t, view.Attendees)
	assert.Empty(t, view.Attendees)
	assert.Equal(t, "Bob", view.CoachFirstName)
	assert.Equal(t, "Brown", view.CoachLastName)

	stored, err := f.service.GetActivity(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, stored.DurationMinutes)
	assert.Equal(t, 2, stored.CreditsRequired)
}

func TestActivityService_CreateActivity_Rejections(t *testing.T) {
	f := newActivityFixture(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, "admin@example.com", models.RoleAdmin)
	client := testutil.CreateUser(t, f.db, "client@example.com", models.RoleClient)

	tests := []struct {
		name      string
		actor     models.User
		input     func() CreateActivityInput
		wantErr   error
		wantField string
	}{
		{
			name:    "unknown coach",
			actor:   admin,
			input:   func() CreateActivityInput { return validActivityInput(4242) },
			wantErr: ErrInvalidCoach,
		},
		{
			name:    "referenced user is not a coach",
			actor:   admin,
			input:   func() CreateActivityInput { return validActivityInput(client.ID) },
			wantErr: ErrInvalidCoach,
		},
		{
			name:    "coach scheduling someone else",
			actor:   f.coachA,
			input:   func() CreateActivityInput { return validActivityInput(f.coachB.ID) },
			wantErr: ErrForbidden,
		},
		{
			name:  "zero capacity",
			actor: admin,
			input: func() CreateActivityInput {
				in := validActivityInput(f.coachA.ID)
				in.MaxCapacity = 0
				return in
			},
			wantField: "max_capacity",
		},
		{
			name:  "negative duration",
			actor: admin,
			input: func() CreateActivityInput {
				in := validActivityInput(f.coachA.ID)
				in.DurationMinutes = -5
				return in
			},
			wantField: "duration",
		},
		{
			name:  "blank name",
			actor: admin,
			input: func() CreateActivityInput {
				in := validActivityInput(f.coachA.ID)
				in.Name = "   "
				return in
			},
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before int64
			require.NoError(t, f.db.Model(&models.Activity{}).Count(&before).Error)

			_, err := f.service.CreateActivity(ctx, &tt.actor, tt.input())
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "Expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantField != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr), "Expected ValidationError, got %v", err)
				assert.Contains(t, verr.Fields, tt.wantField)
			}

			var after int64
			require.NoError(t, f.db.Model(&models.Activity{}).Count(&after).Error)
			assert.Equal(t, before, after, "No activity should be persisted")
		})
	}
}

func TestActivityService_CoachSchedulesThemselves(t *testing.T) {
	f := newActivityFixture(t)

	view, err := f.service.CreateActivity(context.Background(), &f.coachA, validActivityInput(f.coachA.ID))
	require.NoError(t, err)
	assert.Equal(t, f.coachA.ID, view.CoachID)
}
