package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/services"
)

// UpdateUserRequest represents the request body for updating a user profile.
// Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// SetRolesRequest replaces the full role set of a user
type SetRolesRequest struct {
	Roles []models.RoleName `json:"roles" binding:"required"`
}

// UpdateUserResponse is the updated profile. Token is set when callers change
// their own email, since the token they sent no longer resolves.
type UpdateUserResponse struct {
	*models.User
	Token *services.TokenResponse `json:"token,omitempty"`
}

// UserController serves profiles, role management and the caller's bookings
type UserController struct {
	auth     *services.AuthService
	users    *services.UserService
	bookings *services.BookingService
	logger   *slog.Logger
}

// NewUserController creates a UserController
func NewUserController(auth *services.AuthService, users *services.UserService, bookings *services.BookingService, logger *slog.Logger) *UserController {
	return &UserController{auth: auth, users: users, bookings: bookings, logger: logger}
}

// GetMe handles GET /api/v1/users/me - returns the authenticated user with roles
func (uc *UserController) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

// ListUsers handles GET /api/v1/users (admin)
func (uc *UserController) ListUsers(c *gin.Context) {
	users, err := uc.users.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, users)
}

// ListCoaches handles GET /api/v1/users/coaches
func (uc *UserController) ListCoaches(c *gin.Context) {
	coaches, err := uc.users.ListCoaches(c.Request.Context())
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, coaches)
}

// GetUser handles GET /api/v1/users/:id (admin or self)
func (uc *UserController) GetUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := uc.users.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

// UpdateUser handles PUT /api/v1/users/:id (admin or self)
func (uc *UserController) UpdateUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := uc.users.UpdateUser(c.Request.Context(), actor, id, services.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}

	resp := UpdateUserResponse{User: user}
	if actor.ID == user.ID && actor.Email != user.Email {
		token, err := uc.auth.IssueToken(user)
		if err != nil {
			respondServiceError(c, uc.logger, err)
			return
		}
		resp.Token = token
	}
	respondSuccess(c, http.StatusOK, resp)
}

// GetRoles handles GET /api/v1/users/:id/roles (admin)
func (uc *UserController) GetRoles(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	roles, err := uc.users.GetRoles(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "roles": roles})
}

// SetRoles handles PUT /api/v1/users/:id/roles (admin). Unknown role names are skipped.
func (uc *UserController) SetRoles(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SetRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	roles, err := uc.users.SetRoles(c.Request.Context(), id, req.Roles)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "roles": roles})
}

// AddRole handles POST /api/v1/users/:id/roles/:role (admin)
func (uc *UserController) AddRole(c *gin.Context) {
	id, role, ok := parseRoleParams(c)
	if !ok {
		return
	}

	added, err := uc.users.AddRole(c.Request.Context(), id, role)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	if !added {
		respondError(c, http.StatusConflict, "ROLE_ALREADY_ASSIGNED", "User already holds role "+string(role))
		return
	}
	uc.respondRoles(c, id)
}

// RemoveRole handles DELETE /api/v1/users/:id/roles/:role (admin)
func (uc *UserController) RemoveRole(c *gin.Context) {
	id, role, ok := parseRoleParams(c)
	if !ok {
		return
	}

	removed, err := uc.users.RemoveRole(c.Request.Context(), id, role)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	if !removed {
		respondError(c, http.StatusNotFound, "ROLE_NOT_ASSIGNED", "User does not hold role "+string(role))
		return
	}
	uc.respondRoles(c, id)
}

// ListMyBookings handles GET /api/v1/users/me/bookings
func (uc *UserController) ListMyBookings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	bookings, err := uc.bookings.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, bookings)
}

func (uc *UserController) respondRoles(c *gin.Context, id uint) {
	roles, err := uc.users.GetRoles(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, uc.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "roles": roles})
}

func parseRoleParams(c *gin.Context) (uint, models.RoleName, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return 0, "", false
	}

	role := models.RoleName(c.Param("role"))
	if !role.IsValid() {
		respondError(c, http.StatusBadRequest, "UNKNOWN_ROLE", "Role must be one of client, coach, admin")
		return 0, "", false
	}
	return id, role, true
}
