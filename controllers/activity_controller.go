package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/services"
)

// ListActivitiesQuery holds the optional listing filters. Dates are whole UTC days.
type ListActivitiesQuery struct {
	CoachID           *uint      `form:"coach_id" binding:"omitempty,gt=0"`
	StartDate         *time.Time `form:"start_date" time_format:"2006-01-02" time_utc:"1"`
	EndDate           *time.Time `form:"end_date" time_format:"2006-01-02" time_utc:"1"`
	MinAvailableSpots *int       `form:"min_available_spots" binding:"omitempty,gte=0"`
	IncludePast       bool       `form:"include_past"`
}

// CreateActivityRequest represents the request body for scheduling an activity
type CreateActivityRequest struct {
	Name            string    `json:"name" binding:"required"`
	Description     string    `json:"description" binding:"required"`
	CoachID         uint      `json:"coach_id" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	Duration        int       `json:"duration" binding:"required,gt=0"`
	CreditsRequired *int      `json:"credits_required" binding:"required,gte=0"`
	MaxCapacity     int       `json:"max_capacity" binding:"required,gt=0"`
}

// ActivityController serves the activity catalog and bookings
type ActivityController struct {
	activities *services.ActivityService
	bookings   *services.BookingService
	logger     *slog.Logger
}

// NewActivityController creates an ActivityController
func NewActivityController(activities *services.ActivityService, bookings *services.BookingService, logger *slog.Logger) *ActivityController {
	return &ActivityController{activities: activities, bookings: bookings, logger: logger}
}

// ListActivities handles GET /api/v1/activities
func (ac *ActivityController) ListActivities(c *gin.Context) {
	var query ListActivitiesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	if query.StartDate != nil && query.EndDate != nil && query.EndDate.Before(*query.StartDate) {
		respondValidation(c, map[string]string{"end_date": "must not be before start_date"})
		return
	}

	views, err := ac.activities.ListActivities(c.Request.Context(), services.ActivityFilter{
		CoachID:           query.CoachID,
		StartDate:         query.StartDate,
		EndDate:           query.EndDate,
		MinAvailableSpots: query.MinAvailableSpots,
		IncludePast:       query.IncludePast,
	})
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, views)
}

// GetActivity handles GET /api/v1/activities/:id
func (ac *ActivityController) GetActivity(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := ac.activities.GetActivity(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// CreateActivity handles POST /api/v1/activities (coach or admin)
func (ac *ActivityController) CreateActivity(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := ac.activities.CreateActivity(c.Request.Context(), actor, services.CreateActivityInput{
		Name:            req.Name,
		Description:     req.Description,
		CoachID:         req.CoachID,
		StartTime:       req.StartTime,
		DurationMinutes: req.Duration,
		CreditsRequired: *req.CreditsRequired,
		MaxCapacity:     req.MaxCapacity,
	})
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	respondSuccess(c, http.StatusCreated, view)
}

// UploadImage handles POST /api/v1/activities/:id/image - multipart field "image"
func (ac *ActivityController) UploadImage(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "Image file is required in field 'image'")
		return
	}

	view, err := ac.activities.AttachImage(c.Request.Context(), actor, id, fileHeader)
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// BookActivity handles POST /api/v1/activities/:id/bookings - books the caller
func (ac *ActivityController) BookActivity(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := ac.bookings.Book(c.Request.Context(), user, id)
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	respondSuccess(c, http.StatusCreated, booking)
}

// CancelBooking handles DELETE /api/v1/activities/:id/bookings - cancels the caller's booking
func (ac *ActivityController) CancelBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := ac.bookings.Cancel(c.Request.Context(), user, id)
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, booking)
}
