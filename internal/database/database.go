package database

import (
	"fmt"
	"strings"
	"time"

	"plugin-directory-backend/internal/database/models"
	"plugin-directory-backend/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options tunes the connection pool, the GORM log level and optional seeding
type Options struct {
	LogLevel        gormlogger.LogLevel
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// SeedDir, when set, is searched for sync_plugins.yaml after migration
	SeedDir string
}

// Initialize opens a Postgres connection, migrates the schema and optionally
// seeds sync records from YAML.
func Initialize(dsn string, opts *Options) (*gorm.DB, error) {
	log := logger.New()
	log.Info("Initializing database...")
	if opts == nil {
		opts = &Options{}
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = gormlogger.Error
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 20
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 10
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}
	if opts.ConnMaxIdleTime == 0 {
		opts.ConnMaxIdleTime = 10 * time.Minute
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(opts.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	if err := Migrate(db); err != nil {
		closeDB(db)
		return nil, err
	}

	if opts.SeedDir != "" {
		if err := InitDataFromYAMLs(db, opts.SeedDir); err != nil {
			closeDB(db)
			return nil, fmt.Errorf("failed init data from YAML files: %w", err)
		}
	}
	log.Info("Initializing database done.")
	return db, nil
}

// Migrate creates or updates the schema for all models
func Migrate(db *gorm.DB) error {
	all := []interface{}{
		&models.SyncPlugin{},
		&models.Plugin{},
		&models.PluginTag{},
		&models.PluginPluginTag{},
	}
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// closeDB releases the pool of a connection that will not be handed out
func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// ParseLogLevel maps a config string to a gorm log level
func ParseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "warn", "warning":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Error
	}
}
