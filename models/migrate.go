package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table owned by the API
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Role{}, &UserRole{}, &Activity{}, &ActivityBooking{})
}
