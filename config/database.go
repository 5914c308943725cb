package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

// OpenDatabase establishes a connection to the database named by the URL.
// URLs starting with sqlite:// open a local SQLite file, everything else is PostgreSQL.
func OpenDatabase(databaseURL string, logger *slog.Logger) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, sqliteScheme) {
		dialector = sqlite.Open(SQLiteDSN(strings.TrimPrefix(databaseURL, sqliteScheme)))
	} else {
		dialector = postgres.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		// SQLite allows a single writer; one connection queues writers instead of failing with "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if logger != nil {
		logger.Info("database connection established", slog.String("dialect", db.Dialector.Name()))
	}
	return db, nil
}

const sqliteParams = "_foreign_keys=1&_busy_timeout=5000&_txlock=immediate"

// SQLiteDSN turns a file name (or :memory:) into a DSN with foreign keys enforced.
// Transactions take the write lock up front and wait up to five seconds for it.
func SQLiteDSN(name string) string {
	if name == ":memory:" {
		return "file::memory:?cache=shared&" + sqliteParams
	}
	if strings.Contains(name, "?") {
		return name + "&" + sqliteParams
	}
	return name + "?" + sqliteParams
}
