package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gymdash/gymdash-api/middleware"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/services"
	"github.com/gymdash/gymdash-api/utils"
)

func init() {
	// Report binding failures under the JSON/form names clients send
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	}
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var serviceErrors = []errorMapping{
	{services.ErrEmailTaken, http.StatusBadRequest, "EMAIL_EXISTS", "A user with this email already exists"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password"},
	{services.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Could not validate credentials"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "The user doesn't have enough privileges"},
	{services.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{services.ErrActivityNotFound, http.StatusNotFound, "ACTIVITY_NOT_FOUND", "Activity not found"},
	{services.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND", "No active booking for this activity"},
	{services.ErrInvalidCoach, http.StatusBadRequest, "INVALID_COACH", "Coach does not exist or does not hold the coach role"},
	{services.ErrActivityFull, http.StatusConflict, "ACTIVITY_FULL", "Activity is fully booked"},
	{services.ErrActivityStarted, http.StatusConflict, "ACTIVITY_STARTED", "Activity has already started"},
	{services.ErrAlreadyBooked, http.StatusConflict, "ALREADY_BOOKED", "Activity is already booked by this user"},
	{services.ErrImagesDisabled, http.StatusServiceUnavailable, "IMAGES_DISABLED", "Image storage is not configured"},
	{services.ErrRetrieval, http.StatusInternalServerError, "RETRIEVAL_ERROR", "Failed to retrieve data"},
}

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, details interface{}) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": details,
		},
	})
}

// respondBindError reports a failed ShouldBind* call as 422 with per-field details
// when the validator produced them
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = describeFieldError(fe)
		}
		respondValidation(c, details)
		return
	}
	respondValidation(c, err.Error())
}

// respondServiceError translates a services error into the response envelope.
// Unknown errors are logged and reported without detail.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		respondValidation(c, verr.Fields)
		return
	}

	var fileErr *utils.FileUploadError
	if errors.As(err, &fileErr) {
		respondError(c, http.StatusBadRequest, fileErr.Code, fileErr.Message)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "Bearer")
			}
			if m.status >= http.StatusInternalServerError {
				logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
			}
			respondError(c, m.status, m.code, m.message)
			return
		}
	}

	logger.Error("unexpected error", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be an E.164 phone number such as +15555550100"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// parseIDParam reads a positive integer path parameter, answering 422 when it is not one
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondValidation(c, map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// currentUser returns the user loaded by middleware.LoadCurrentUser, answering 401 when absent
func currentUser(c *gin.Context) (*models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Could not validate credentials")
		return nil, false
	}
	return user, true
}
