package models

import (
	"time"
)

// RoleName is one of the fixed roles a user can hold
type RoleName string

const (
	RoleClient RoleName = "client"
	RoleCoach  RoleName = "coach"
	RoleAdmin  RoleName = "admin"
)

// AllRoles lists every role in seeding order
var AllRoles = []RoleName{RoleClient, RoleCoach, RoleAdmin}

// IsValid reports whether the name belongs to the closed role set
func (r RoleName) IsValid() bool {
	switch r {
	case RoleClient, RoleCoach, RoleAdmin:
		return true
	}
	return false
}

// User represents a gym member, coach or administrator
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"not null" json:"-"`
	FirstName      string    `gorm:"not null" json:"first_name"`
	LastName       string    `gorm:"not null" json:"last_name"`
	Phone          string    `json:"phone"`
	Roles          []Role    `gorm:"many2many:user_roles" json:"roles,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// HasRole checks the preloaded roles of the user
func (u *User) HasRole(name RoleName) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// RoleNames returns the names of the preloaded roles
func (u *User) RoleNames() []RoleName {
	names := make([]RoleName, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// Role is static reference data seeded once at startup
type Role struct {
	ID   uint     `gorm:"primaryKey" json:"-"`
	Name RoleName `gorm:"uniqueIndex;not null;size:16" json:"name"`
}

// TableName specifies the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// UserRole is the join row between users and roles
type UserRole struct {
	UserID uint `gorm:"primaryKey"`
	RoleID uint `gorm:"primaryKey"`
}

// TableName specifies the table name for the UserRole model
func (UserRole) TableName() string {
	return "user_roles"
}
