package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, StorePostgres, cfg.StoreBackend)
		assert.Equal(t, BlobNone, cfg.BlobBackend)
		assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, 30*time.Second, cfg.BlobTimeout)
		assert.Equal(t, "@every 15m", cfg.SweepSchedule)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PORT", "9090")
		t.Setenv("STORE_BACKEND", "MEMORY")
		t.Setenv("BLOB_BACKEND", "fs")
		t.Setenv("BLOB_TIMEOUT", "5s")
		t.Setenv("MAX_UPLOAD_SIZE", "2048")
		t.Setenv("BASE_URL", "https://docs.example.com/")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, StoreMemory, cfg.StoreBackend)
		assert.Equal(t, BlobFilesystem, cfg.BlobBackend)
		assert.Equal(t, 5*time.Second, cfg.BlobTimeout)
		assert.Equal(t, int64(2048), cfg.MaxUploadSize)
		assert.Equal(t, "https://docs.example.com", cfg.BaseURL)
	})

	t.Run("s3 requires a bucket", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("BLOB_BACKEND", "s3")

		_, err := Load()
		assert.ErrorContains(t, err, "S3_BUCKET")
	})

	t.Run("unknown store backend", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STORE_BACKEND", "sqlite")

		_, err := Load()
		assert.ErrorContains(t, err, "unknown STORE_BACKEND")
	})

	t.Run("reservation ttl must exceed blob timeout", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("BLOB_TIMEOUT", "30s")
		t.Setenv("RESERVATION_TTL", "10s")

		_, err := Load()
		assert.ErrorContains(t, err, "RESERVATION_TTL")
	})

	t.Run("rate limit burst must be positive", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("RATE_LIMIT_BURST", "0")

		_, err := Load()
		assert.ErrorContains(t, err, "RATE_LIMIT_BURST")
	})

	t.Run("rate limit rps must be positive", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("RATE_LIMIT_RPS", "-1")

		_, err := Load()
		assert.ErrorContains(t, err, "RATE_LIMIT_RPS")
	})
}
