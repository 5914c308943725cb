package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCredentials() *services.JWTCredentials {
	return services.NewJWTCredentials("middleware-secret", "gymdash-api", "gymdash")
}

type fakeResolver struct {
	users map[string]*models.User
	err   error
}

func (r *fakeResolver) CurrentUser(_ context.Context, claims *services.Claims) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[claims.Subject]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return user, nil
}

func TestEnsureValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	creds := testCredentials()

	valid, err := creds.IssueToken(services.Claims{Subject: "member@example.com"}, time.Hour)
	require.NoError(t, err)
	foreign, err := services.NewJWTCredentials("other-secret", "gymdash-api", "gymdash").
		IssueToken(services.Claims{Subject: "member@example.com"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedNext   bool
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, false},
		{"signed with another secret", "Bearer " + foreign, http.StatusUnauthorized, false},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			reachedNext := false
			router.GET("/protected", EnsureValidToken(creds, discardLogger()), func(c *gin.Context) {
				reachedNext = true
				claims, err := GetClaims(c)
				require.NoError(t, err)
				c.JSON(http.StatusOK, gin.H{"sub": claims.Subject})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedNext, reachedNext, "Downstream handlers must not run for rejected tokens")
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
				assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
			}
		})
	}
}

func TestLoadCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	member := &models.User{ID: 7, Email: "member@example.com"}

	tests := []struct {
		name           string
		claims         *services.Claims
		resolver       *fakeResolver
		expectedStatus int
	}{
		{
			name:           "known user",
			claims:         &services.Claims{Subject: "member@example.com"},
			resolver:       &fakeResolver{users: map[string]*models.User{"member@example.com": member}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "user deleted after token was issued",
			claims:         &services.Claims{Subject: "gone@example.com"},
			resolver:       &fakeResolver{users: map[string]*models.User{}},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no claims on context",
			resolver:       &fakeResolver{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "store failure",
			claims:         &services.Claims{Subject: "member@example.com"},
			resolver:       &fakeResolver{err: errors.New("connection reset")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/me",
				func(c *gin.Context) {
					if tt.claims != nil {
						c.Set(claimsContextKey, tt.claims)
					}
					c.Next()
				},
				LoadCurrentUser(tt.resolver),
				func(c *gin.Context) {
					user, err := GetCurrentUser(c)
					require.NoError(t, err)
					c.JSON(http.StatusOK, gin.H{"id": user.ID})
				},
			)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		user           *models.User
		allowed        []models.RoleName
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "holds required role",
			user:           &models.User{ID: 1, Roles: []models.Role{{Name: models.RoleAdmin}}},
			allowed:        []models.RoleName{models.RoleAdmin},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "holds one of several roles",
			user:           &models.User{ID: 2, Roles: []models.Role{{Name: models.RoleCoach}}},
			allowed:        []models.RoleName{models.RoleAdmin, models.RoleCoach},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "lacks role",
			user:           &models.User{ID: 3, Roles: []models.Role{{Name: models.RoleClient}}},
			allowed:        []models.RoleName{models.RoleAdmin},
			expectedStatus: http.StatusForbidden,
			expectedError:  "FORBIDDEN",
		},
		{
			name:           "no roles at all",
			user:           &models.User{ID: 4},
			allowed:        []models.RoleName{models.RoleClient},
			expectedStatus: http.StatusForbidden,
			expectedError:  "FORBIDDEN",
		},
		{
			name:           "not authenticated",
			allowed:        []models.RoleName{models.RoleClient},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "INVALID_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/guarded",
				func(c *gin.Context) {
					if tt.user != nil {
						SetCurrentUser(c, tt.user)
					}
					c.Next()
				},
				RequireRole(tt.allowed...),
				func(c *gin.Context) { c.Status(http.StatusOK) },
			)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantErr   bool
	}{
		{
			name:      "user present",
			setupFunc: func(c *gin.Context) { SetCurrentUser(c, &models.User{ID: 1}) },
		},
		{
			name:      "user missing",
			setupFunc: func(c *gin.Context) {},
			wantErr:   true,
		},
		{
			name:      "wrong type",
			setupFunc: func(c *gin.Context) { c.Set(userContextKey, "not a user") },
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			tt.setupFunc(c)

			user, err := GetCurrentUser(c)
			if tt.wantErr {
				var authErr *AuthError
				assert.True(t, errors.As(err, &authErr))
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(1), user.ID)
		})
	}
}
