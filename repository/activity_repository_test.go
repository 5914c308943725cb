package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	coachA := testutil.CreateUser(t, db, "a@example.com", models.RoleCoach)
	coachB := testutil.CreateUser(t, db, "b@example.com", models.RoleCoach)
	base := time.Date(2030, 5, 10, 9, 0, 0, 0, time.UTC)

	late := testutil.CreateActivity(t, db, coachA.ID, "Spin", base.Add(48*time.Hour), 10)
	early := testutil.CreateActivity(t, db, coachB.ID, "Yoga", base, 10)
	middle := testutil.CreateActivity(t, db, coachA.ID, "Pilates", base.Add(24*time.Hour), 10)

	from := base.Add(12 * time.Hour)
	to := base.Add(30 * time.Hour)

	tests := []struct {
		name  string
		query ActivityQuery
		want  []uint
	}{
		{"no filters ordered by start", ActivityQuery{}, []uint{early.ID, middle.ID, late.ID}},
		{"by coach", ActivityQuery{CoachID: &coachA.ID}, []uint{middle.ID, late.ID}},
		{"starts from", ActivityQuery{StartsFrom: &from}, []uint{middle.ID, late.ID}},
		{"starts to", ActivityQuery{StartsTo: &to}, []uint{early.ID, middle.ID}},
		{"window", ActivityQuery{StartsFrom: &from, StartsTo: &to}, []uint{middle.ID}},
		{"inclusive bounds", ActivityQuery{StartsFrom: &base, StartsTo: &base}, []uint{early.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activities, err := repo.List(ctx, tt.query)
			require.NoError(t, err)

			ids := make([]uint, 0, len(activities))
			for _, a := range activities {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestActivityRepository_GetDetailed(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	coach := testutil.CreateNamedUser(t, db, "coach@example.com", "Sam", "Strong", models.RoleCoach)
	member := testutil.CreateUser(t, db, "member@example.com", models.RoleClient)
	other := testutil.CreateUser(t, db, "other@example.com", models.RoleClient)
	activity := testutil.CreateActivity(t, db, coach.ID, "HIIT", time.Now().UTC().Add(time.Hour), 5)
	testutil.CreateBooking(t, db, member.ID, activity.ID, models.BookingConfirmed)
	testutil.CreateBooking(t, db, other.ID, activity.ID, models.BookingCancelled)

	loaded, err := repo.GetDetailed(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", loaded.Coach.FirstName)
	require.Len(t, loaded.Bookings, 2)
	assert.Equal(t, "member@example.com", loaded.Bookings[0].User.Email)
	assert.Equal(t, models.BookingCancelled, loaded.Bookings[1].Status)

	_, err = repo.GetDetailed(ctx, activity.ID+100)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestActivityRepository_GetForUpdate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewActivityRepository(db)
	coach := testutil.CreateUser(t, db, "coach@example.com", models.RoleCoach)
	activity := testutil.CreateActivity(t, db, coach.ID, "Boxing", time.Now().UTC().Add(time.Hour), 5)

	loaded, err := repo.GetForUpdate(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Equal(t, activity.Name, loaded.Name)

	_, err = repo.GetForUpdate(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestActivityRepository_RejectsUnknownCoach(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewActivityRepository(db)

	err := repo.Create(context.Background(), &models.Activity{
		Name:            "Ghost class",
		Description:     "nobody teaches this",
		CoachID:         404,
		StartTime:       time.Now().UTC().Add(time.Hour),
		DurationMinutes: 30,
		MaxCapacity:     5,
	})
	assert.Error(t, err, "Foreign keys should be enforced")
}
