package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docshelf/internal/server/api"
	"docshelf/internal/server/config"
	"docshelf/internal/server/database"
	"docshelf/internal/server/logging"
	"docshelf/internal/server/service"
	"docshelf/internal/server/storage"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()

			ctx := cmd.Context()
			db, err := database.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			logging.L().Info("database migrations complete")
			return nil
		},
	}
}

// setup loads configuration and initializes the global logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	log := logging.L()
	log.Info("configuration loaded",
		logging.String("port", cfg.Port),
		logging.String("store_backend", cfg.StoreBackend),
		logging.String("blob_backend", cfg.BlobBackend),
		logging.Int64("max_upload_size", cfg.MaxUploadSize),
		logging.Duration("blob_timeout", cfg.BlobTimeout),
	)

	// Metadata store
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Blob store
	store, blobDir, closeStore, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Services
	folders := service.NewFolderService(repo)
	files := service.NewFileService(repo, store, cfg)

	// Background sweeper
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	sweeper := storage.NewSweeper(repo, store, cfg.SweepSchedule, cfg.ReservationTTL)
	if err := sweeper.Start(sweeperCtx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	// HTTP router
	handler := api.NewHandler(folders, files, repo)
	e := api.SetupRouter(handler, cfg, blobDir)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("starting server", logging.String("addr", addr), logging.String("base_url", cfg.BaseURL))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", logging.Err(err))
			return err
		}
	}

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logging.Err(err))
	}

	sweeperCancel()
	sweeper.Stop()

	log.Info("server exited cleanly")
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (database.Repository, func(), error) {
	if cfg.StoreBackend == config.StoreMemory {
		logging.L().Warn("using in-memory metadata store, data is lost on restart")
		return database.NewMemoryRepository(), func() {}, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logging.L().Info("database migrations complete")

	return database.NewPostgresRepository(db), db.Close, nil
}

// openBlobStore returns the configured blob store, or a nil Store when blob
// storage is disabled. blobDir is set only for the filesystem backend.
func openBlobStore(ctx context.Context, cfg *config.Config) (storage.Store, string, func(), error) {
	noop := func() {}

	switch cfg.BlobBackend {
	case config.BlobFilesystem:
		fs := storage.NewFileSystemStore(cfg.BlobPath, cfg.BaseURL)
		if err := fs.EnsureDir(); err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		logging.L().Info("filesystem blob storage initialized", logging.String("path", fs.BasePath()))
		return fs, fs.BasePath(), noop, nil

	case config.BlobS3:
		s3, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize s3 blob storage: %w", err)
		}
		logging.L().Info("s3 blob storage initialized", logging.String("bucket", cfg.S3.Bucket))
		return s3, "", noop, nil

	case config.BlobGCS:
		gcs, err := storage.NewGCSStore(ctx, cfg.GCS)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize gcs blob storage: %w", err)
		}
		logging.L().Info("gcs blob storage initialized", logging.String("bucket", cfg.GCS.Bucket))
		return gcs, "", func() {
			if err := gcs.Close(); err != nil {
				logging.L().Warn("failed to close gcs client", logging.Err(err))
			}
		}, nil
	}

	logging.L().Info("blob storage disabled, file content is not persisted")
	return nil, "", noop, nil
}
