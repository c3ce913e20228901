package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"docshelf/internal/server/config"
	"docshelf/internal/server/logging"
	"docshelf/internal/server/metrics"
)

// GCSStore implements Store on a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore creates a GCS client. Without a credentials file the client
// falls back to application default credentials.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

// Put streams content into the bucket.
func (s *GCSStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (Locator, error) {
	start := time.Now()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	_, err := io.Copy(w, data)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	metrics.RecordBlobOperation(s.Type(), "put", time.Since(start), err == nil)
	if err != nil {
		return Locator{}, fmt.Errorf("put object %s: %w", key, err)
	}

	logging.L().Debug("GCS put object", logging.String("key", key), logging.Int64("size", size))
	return Locator{
		URL:      fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key),
		PublicID: key,
	}, nil
}

// Delete removes an object. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, publicID string) error {
	start := time.Now()

	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		err = nil
	}
	metrics.RecordBlobOperation(s.Type(), "delete", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", publicID, err)
	}
	return nil
}

// Type returns "gcs".
func (s *GCSStore) Type() string { return "gcs" }

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
