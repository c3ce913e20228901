package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docshelf/internal/server/logging"
)

// migrations contains all database migrations in order.
// Each migration has a version key and SQL to execute.
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_folders",
		SQL: `
			CREATE TABLE IF NOT EXISTS folders (
				id             UUID         PRIMARY KEY,
				name           VARCHAR(255) NOT NULL UNIQUE,
				type           VARCHAR(8)   NOT NULL CHECK (type IN ('csv', 'img', 'pdf', 'ppt')),
				max_file_limit INTEGER      NOT NULL CHECK (max_file_limit > 0),
				created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				updated_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version: "000002_create_files",
		SQL: `
			CREATE TABLE IF NOT EXISTS files (
				seq         BIGSERIAL    UNIQUE,
				id          UUID         PRIMARY KEY,
				folder_id   UUID         NOT NULL REFERENCES folders(id) ON DELETE RESTRICT,
				name        VARCHAR(255) NOT NULL,
				description TEXT,
				type        VARCHAR(255) NOT NULL,
				size        BIGINT       NOT NULL CHECK (size >= 0),
				checksum    VARCHAR(64)  NOT NULL DEFAULT '',
				url         TEXT         NOT NULL DEFAULT '',
				public_id   TEXT         NOT NULL DEFAULT '',
				status      VARCHAR(16)  NOT NULL DEFAULT 'pending',
				reserved_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				uploaded_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_files_folder_id ON files(folder_id, seq);
			CREATE INDEX IF NOT EXISTS idx_files_type ON files(type) WHERE status = 'committed';
			CREATE INDEX IF NOT EXISTS idx_files_pending ON files(reserved_at) WHERE status = 'pending';
		`,
	},
	{
		Version: "000003_create_blob_tombstones",
		SQL: `
			CREATE TABLE IF NOT EXISTS blob_tombstones (
				id         BIGSERIAL   PRIMARY KEY,
				public_id  TEXT        NOT NULL,
				attempts   INTEGER     NOT NULL DEFAULT 0,
				last_error TEXT        NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
}

// DB wraps a pgxpool connection pool and provides health checks and migrations.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.L().Info("connected to database")
	return &DB{Pool: pool}, nil
}

// RunMigrations applies all pending database migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status for %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}

		logging.L().Info("applied migration", logging.String("version", m.Version))
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
