package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/services"
)

const (
	claimsContextKey = "token_claims"
	userContextKey   = "current_user"
)

// TokenDecoder turns a bearer token into verified claims
type TokenDecoder interface {
	DecodeToken(token string) (*services.Claims, error)
}

// UserResolver loads the stored user named by token claims
type UserResolver interface {
	CurrentUser(ctx context.Context, claims *services.Claims) (*models.User, error)
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// The bearer token is extracted by go-jwt-middleware and verified by decoder.
func EnsureValidToken(decoder TokenDecoder, logger *slog.Logger) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if !errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			logger.Info("rejected access token", slog.String("error", err.Error()))
		}
		writeUnauthorized(w)
	}

	middleware := jwtmiddleware.New(
		func(_ context.Context, token string) (interface{}, error) {
			return decoder.DecodeToken(token)
		},
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*services.Claims)
			if !ok {
				writeUnauthorized(w)
				return
			}
			passed = true
			c.Request = r
			c.Set(claimsContextKey, claims)
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoadCurrentUser resolves the token subject to a stored user. Tokens for users
// that no longer exist are rejected.
func LoadCurrentUser(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		user, err := resolver.CurrentUser(c.Request.Context(), claims)
		if errors.Is(err, services.ErrInvalidToken) {
			abortUnauthorized(c)
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to load current user",
				},
			})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRole lets the request through when the current user holds any of roles
func RequireRole(roles ...models.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetCurrentUser(c)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		for _, role := range roles {
			if user.HasRole(role) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "The user doesn't have enough privileges",
			},
		})
	}
}

// GetClaims extracts the validated token claims from the Gin context
func GetClaims(c *gin.Context) (*services.Claims, error) {
	claims, exists := c.Get(claimsContextKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validated, ok := claims.(*services.Claims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}
	return validated, nil
}

// GetCurrentUser extracts the user loaded by LoadCurrentUser
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User is not in the expected format"}
	}
	return user, nil
}

// SetCurrentUser stores user on the context; used by handlers under test
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Could not validate credentials"}}`))
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INVALID_TOKEN",
			"message": "Could not validate credentials",
		},
	})
}
