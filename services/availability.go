package services

import (
	"github.com/gymdash/gymdash-api/models"
)

// AttendeeSummary describes one booking on an activity for display
type AttendeeSummary struct {
	ID            uint                 `json:"id"`
	FirstName     string               `json:"first_name"`
	LastName      string               `json:"last_name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	BookingStatus models.BookingStatus `json:"booking_status"`
	CreditsUsed   int                  `json:"credits_used"`
}

// Availability is the occupancy of an activity derived from its bookings
type Availability struct {
	BookedCount    int
	AvailableSpots int
	Attendees      []AttendeeSummary
}

// ComputeAvailability derives occupancy from the activity's preloaded bookings.
// Only confirmed bookings consume capacity, but every booking is listed as an
// attendee tagged with its own status. AvailableSpots goes negative when an
// activity is over-booked.
func ComputeAvailability(activity *models.Activity) Availability {
	result := Availability{
		Attendees: make([]AttendeeSummary, 0, len(activity.Bookings)),
	}

	for _, booking := range activity.Bookings {
		if booking.Status.ConsumesCapacity() {
			result.BookedCount++
		}
		result.Attendees = append(result.Attendees, AttendeeSummary{
			ID:            booking.User.ID,
			FirstName:     booking.User.FirstName,
			LastName:      booking.User.LastName,
			Email:         booking.User.Email,
			Phone:         booking.User.Phone,
			BookingStatus: booking.Status,
			CreditsUsed:   booking.CreditsUsed,
		})
	}

	result.AvailableSpots = activity.MaxCapacity - result.BookedCount
	return result
}
