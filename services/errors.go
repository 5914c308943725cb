package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrActivityNotFound   = errors.New("activity not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCoach       = errors.New("coach does not exist or does not hold the coach role")
	ErrForbidden          = errors.New("operation not permitted")
	ErrActivityFull       = errors.New("activity is fully booked")
	ErrActivityStarted    = errors.New("activity has already started")
	ErrAlreadyBooked      = errors.New("activity already booked")
	ErrImagesDisabled     = errors.New("image storage is not configured")

	// ErrRetrieval wraps any data-access failure on a read path
	ErrRetrieval = errors.New("failed to retrieve data")
)

// ValidationError carries per-field messages for rejected input
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for a field, keeping the first message per field
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
