package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/observability"
	"github.com/gymdash/gymdash-api/services"
)

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

// LoginRequest represents the JSON login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenForm is the OAuth2 password grant form; username carries the email
type TokenForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// AuthController serves registration and token issuance
type AuthController struct {
	auth   *services.AuthService
	logger *slog.Logger
}

// NewAuthController creates an AuthController
func NewAuthController(auth *services.AuthService, logger *slog.Logger) *AuthController {
	return &AuthController{auth: auth, logger: logger}
}

// Register handles POST /api/v1/auth/register - creates a client account
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ac.auth.Register(c.Request.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, user)
}

// Token handles POST /api/v1/auth/token - form-encoded login for OAuth2 clients.
// The token response is returned bare as OAuth2 clients expect.
func (ac *AuthController) Token(c *gin.Context) {
	var form TokenForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	token, ok := ac.login(c, form.Username, form.Password)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, token)
}

// Login handles POST /api/v1/auth/login - JSON login
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	token, ok := ac.login(c, req.Email, req.Password)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, token)
}

func (ac *AuthController) login(c *gin.Context, email, password string) (*services.TokenResponse, bool) {
	token, err := ac.auth.Login(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			observability.ObserveLogin("failure")
		}
		respondServiceError(c, ac.logger, err)
		return nil, false
	}

	observability.ObserveLogin("success")
	return token, true
}
