package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gymdash/gymdash-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with every table migrated
// and the role reference data seeded. The database is closed when the test ends.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// A single connection keeps transactions from tripping over shared-cache table locks
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	for _, name := range models.AllRoles {
		role := models.Role{Name: name}
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			t.Fatalf("Failed to seed role %s: %v", name, err)
		}
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// CreateUser inserts a user holding the given roles
func CreateUser(t *testing.T, db *gorm.DB, email string, roles ...models.RoleName) models.User {
	t.Helper()

	user := models.User{
		Email:          email,
		HashedPassword: "not-a-real-hash",
		FirstName:      "First",
		LastName:       "Last",
		Phone:          "+15555550100",
	}
	if len(roles) > 0 {
		if err := db.Where("name IN ?", roles).Find(&user.Roles).Error; err != nil {
			t.Fatalf("Failed to load roles: %v", err)
		}
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

// CreateNamedUser inserts a user with explicit names holding the given roles
func CreateNamedUser(t *testing.T, db *gorm.DB, email, firstName, lastName string, roles ...models.RoleName) models.User {
	t.Helper()

	user := CreateUser(t, db, email, roles...)
	if err := db.Model(&user).Updates(map[string]interface{}{"first_name": firstName, "last_name": lastName}).Error; err != nil {
		t.Fatalf("Failed to name user %s: %v", email, err)
	}
	user.FirstName = firstName
	user.LastName = lastName
	return user
}

// CreateActivity inserts an activity coached by coachID starting at start
func CreateActivity(t *testing.T, db *gorm.DB, coachID uint, name string, start time.Time, capacity int) models.Activity {
	t.Helper()

	activity := models.Activity{
		Name:            name,
		Description:     name + " session",
		CoachID:         coachID,
		StartTime:       start,
		DurationMinutes: 60,
		CreditsRequired: 1,
		MaxCapacity:     capacity,
	}
	if err := db.Create(&activity).Error; err != nil {
		t.Fatalf("Failed to create activity %s: %v", name, err)
	}
	return activity
}

// CreateBooking inserts a booking row in the given status
func CreateBooking(t *testing.T, db *gorm.DB, userID, activityID uint, status models.BookingStatus) models.ActivityBooking {
	t.Helper()

	booking := models.ActivityBooking{
		UserID:      userID,
		ActivityID:  activityID,
		CreditsUsed: 1,
		Status:      status,
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}
	return booking
}
