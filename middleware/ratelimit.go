package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/observability"
	"github.com/gymdash/gymdash-api/ratelimit"
)

// LoginRateLimit throttles login attempts per client IP. When the limiter
// backend fails the attempt is let through.
func LoginRateLimit(limiter ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("login rate limiter unavailable", slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !allowed {
			observability.ObserveLogin("throttled")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TOO_MANY_REQUESTS",
					"message": "Too many login attempts, try again later",
				},
			})
			return
		}
		c.Next()
	}
}
