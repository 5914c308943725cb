package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/config"
	"github.com/gymdash/gymdash-api/controllers"
	"github.com/gymdash/gymdash-api/middleware"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/ratelimit"
	"github.com/gymdash/gymdash-api/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// appDeps is everything the route table needs
type appDeps struct {
	cfg          *config.Config
	db           *gorm.DB
	logger       *slog.Logger
	credentials  services.Credentials
	auth         *services.AuthService
	users        *services.UserService
	activities   *services.ActivityService
	bookings     *services.BookingService
	loginLimiter ratelimit.Limiter
}

// setupRouter creates the gin engine with middleware and every API route
func setupRouter(deps appDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(deps.logger),
		middleware.Metrics(),
		cors.New(cors.Config{
			AllowOrigins:     deps.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(deps.auth, deps.logger)
	userController := controllers.NewUserController(deps.auth, deps.users, deps.bookings, deps.logger)
	activityController := controllers.NewActivityController(deps.activities, deps.bookings, deps.logger)

	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleCoach, models.RoleAdmin)
	client := middleware.RequireRole(models.RoleClient)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus(deps.db))

		auth := v1.Group("/auth")
		{
			auth.POST("/register", authController.Register)
			loginLimit := middleware.LoginRateLimit(deps.loginLimiter, deps.logger)
			auth.POST("/token", loginLimit, authController.Token)
			auth.POST("/login", loginLimit, authController.Login)
		}

		protected := v1.Group("")
		protected.Use(
			middleware.EnsureValidToken(deps.credentials, deps.logger),
			middleware.LoadCurrentUser(deps.auth),
		)
		{
			users := protected.Group("/users")
			users.GET("/me", userController.GetMe)
			users.GET("/me/bookings", userController.ListMyBookings)
			users.GET("/coaches", userController.ListCoaches)
			users.GET("", admin, userController.ListUsers)
			users.GET("/:id", userController.GetUser)
			users.PUT("/:id", userController.UpdateUser)
			users.GET("/:id/roles", admin, userController.GetRoles)
			users.PUT("/:id/roles", admin, userController.SetRoles)
			users.POST("/:id/roles/:role", admin, userController.AddRole)
			users.DELETE("/:id/roles/:role", admin, userController.RemoveRole)

			activities := protected.Group("/activities")
			activities.GET("", activityController.ListActivities)
			activities.GET("/:id", activityController.GetActivity)
			activities.POST("", staff, activityController.CreateActivity)
			activities.POST("/:id/image", staff, activityController.UploadImage)
			activities.POST("/:id/bookings", client, activityController.BookActivity)
			activities.DELETE("/:id/bookings", client, activityController.CancelBooking)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "GymDash API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to get database instance",
				},
			})
			return
		}

		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_QUERY_ERROR",
					"message": "Failed to query tables",
				},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Database connected",
			"dialect": db.Dialector.Name(),
			"tables":  tables,
		})
	}
}
