package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymdash/gymdash-api/config"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/observability"
	"github.com/gymdash/gymdash-api/ratelimit"
	"github.com/gymdash/gymdash-api/services"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("GymDash API stopped: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting GymDash API", slog.String("env", cfg.GoEnv))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.OTLPEndpoint, cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := config.OpenDatabase(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database migration completed")

	deps, closeDeps, err := buildDependencies(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	if err := deps.users.SeedRoles(ctx); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(setupRouter(deps), observability.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("failed to flush traces", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
	return nil
}

// buildDependencies wires services and the optional Redis, Kafka and S3 backends.
// The returned func releases whatever was opened.
func buildDependencies(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (appDeps, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	credentials := services.NewJWTCredentials(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return appDeps{}, nil, err
		}
		closers = append(closers, func() { rdb.Close() })
		limiter = ratelimit.NewRedisLimiter(rdb, "gymdash:login:", cfg.LoginRateLimit, cfg.LoginRateWindow)
		logger.Info("login rate limiting backed by redis")
	} else {
		memory := ratelimit.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
		closers = append(closers, memory.Stop)
		limiter = memory
	}

	var publisher services.BookingPublisher = services.NoopBookingPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := services.NewKafkaBookingPublisher(cfg.KafkaBrokers, cfg.KafkaBookingTopic)
		closers = append(closers, func() {
			if err := kafka.Close(); err != nil {
				logger.Warn("failed to close kafka writer", slog.String("error", err.Error()))
			}
		})
		publisher = kafka
		logger.Info("booking events enabled", slog.String("topic", cfg.KafkaBookingTopic))
	}

	var images services.ImageService
	if cfg.S3Enabled() {
		storage, err := services.NewS3Storage(ctx, cfg)
		if err != nil {
			closeAll()
			return appDeps{}, nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		images = services.NewImageService(storage, logger)
		logger.Info("activity images enabled", slog.String("bucket", cfg.AWSS3Bucket))
	}

	auth := services.NewAuthService(db, credentials, cfg.AccessTokenTTL, logger)
	return appDeps{
		cfg:          cfg,
		db:           db,
		logger:       logger,
		credentials:  credentials,
		auth:         auth,
		users:        services.NewUserService(db, logger),
		activities:   services.NewActivityService(db, images, logger),
		bookings:     services.NewBookingService(db, publisher, logger),
		loginLimiter: limiter,
	}, closeAll, nil
}
