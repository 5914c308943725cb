package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/middleware"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/services"
	"github.com/gymdash/gymdash-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// apiEnv is a router wired like production against an in-memory database
type apiEnv struct {
	db      *gorm.DB
	router  *gin.Engine
	creds   *services.JWTCredentials
	storage *services.MockObjectStorage
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := services.NewJWTCredentials("controller-secret", "gymdash-api", "gymdash").WithHashCost(bcrypt.MinCost)
	storage := services.NewMockObjectStorage()

	authService := services.NewAuthService(db, creds, time.Hour, logger)
	userService := services.NewUserService(db, logger)
	bookingService := services.NewBookingService(db, nil, logger)
	activityService := services.NewActivityService(db, services.NewImageService(storage, logger), logger)

	authController := NewAuthController(authService, logger)
	userController := NewUserController(authService, userService, bookingService, logger)
	activityController := NewActivityController(activityService, bookingService, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/auth/register", authController.Register)
	v1.POST("/auth/token", authController.Token)
	v1.POST("/auth/login", authController.Login)

	protected := v1.Group("")
	protected.Use(middleware.EnsureValidToken(creds, logger), middleware.LoadCurrentUser(authService))
	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleCoach, models.RoleAdmin)

	protected.GET("/users/me", userController.GetMe)
	protected.GET("/users/me/bookings", userController.ListMyBookings)
	protected.GET("/users/coaches", userController.ListCoaches)
	protected.GET("/users", admin, userController.ListUsers)
	protected.GET("/users/:id", userController.GetUser)
	protected.PUT("/users/:id", userController.UpdateUser)
	protected.GET("/users/:id/roles", admin, userController.GetRoles)
	protected.PUT("/users/:id/roles", admin, userController.SetRoles)
	protected.POST("/users/:id/roles/:role", admin, userController.AddRole)
	protected.DELETE("/users/:id/roles/:role", admin, userController.RemoveRole)

	protected.GET("/activities", activityController.ListActivities)
	protected.GET("/activities/:id", activityController.GetActivity)
	protected.POST("/activities", staff, activityController.CreateActivity)
	protected.POST("/activities/:id/image", staff, activityController.UploadImage)
	protected.POST("/activities/:id/bookings", middleware.RequireRole(models.RoleClient), activityController.BookActivity)
	protected.DELETE("/activities/:id/bookings", middleware.RequireRole(models.RoleClient), activityController.CancelBooking)

	return &apiEnv{db: db, router: router, creds: creds, storage: storage}
}

// token mints a bearer token for a stored user
func (e *apiEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.creds.IssueToken(services.Claims{Subject: user.Email}, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}
