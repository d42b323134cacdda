package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"plugin-directory-backend/internal/cache"
	"plugin-directory-backend/internal/config"
	"plugin-directory-backend/internal/database"
	"plugin-directory-backend/internal/logger"
	"plugin-directory-backend/internal/repository"
	"plugin-directory-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		batchSize  int
		seedDir    string
	)

	cmd := &cobra.Command{
		Use:           "plugin-resync",
		Short:         "Map every sync plugin record onto its plugin directory entry",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Resync.BatchSize = batchSize
			}
			if cmd.Flags().Changed("seed-dir") {
				cfg.Database.SeedDir = seedDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "sync records loaded per page (overrides resync.batch_size)")
	cmd.Flags().StringVar(&seedDir, "seed-dir", "", "directory holding sync_plugins.yaml to load before resyncing")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.New().WithField("component", "plugin-resync")
	ctx = logger.WithContext(ctx, log)

	db, err := database.Initialize(cfg.Database.DSN, &database.Options{
		LogLevel:        database.ParseLogLevel(cfg.Database.LogLevel),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SeedDir:         cfg.Database.SeedDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	cacheService := cache.New(cache.CacheConfig{
		DefaultTTL:      cfg.Cache.DefaultTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Enabled:         cfg.Cache.Enabled,
	})
	pluginService := service.NewPluginService(repository.NewGormStore(db), validator.New(), cacheService)

	report, err := pluginService.ResyncAll(ctx, cfg.Resync.BatchSize)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		log.WithField("failed", report.Failed).Warn("Some sync plugins could not be mapped")
	}
	return nil
}
