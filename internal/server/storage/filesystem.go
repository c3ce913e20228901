package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"docshelf/internal/server/metrics"
)

// FileSystemStore stores blobs on the local filesystem. The API server
// serves basePath under /blobs, which is where Put's URLs point.
type FileSystemStore struct {
	basePath string
	baseURL  string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath, baseURL string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath, baseURL: baseURL}
}

// BasePath returns the root directory of the store.
func (fs *FileSystemStore) BasePath() string {
	return fs.basePath
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Put writes data to basePath/key.
func (fs *FileSystemStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (Locator, error) {
	start := time.Now()

	loc, err := fs.put(ctx, key, data)
	metrics.RecordBlobOperation(fs.Type(), "put", time.Since(start), err == nil)
	return loc, err
}

func (fs *FileSystemStore) put(ctx context.Context, key string, data io.Reader) (Locator, error) {
	if err := ctx.Err(); err != nil {
		return Locator{}, err
	}

	filePath, err := fs.filePath(key)
	if err != nil {
		return Locator{}, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return Locator{}, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return Locator{}, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		// Clean up partial file on error
		os.Remove(filePath)
		return Locator{}, fmt.Errorf("failed to write file: %w", err)
	}

	return Locator{
		URL:      fs.baseURL + "/blobs/" + key,
		PublicID: key,
	}, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (fs *FileSystemStore) Delete(ctx context.Context, publicID string) error {
	start := time.Now()

	filePath, err := fs.filePath(publicID)
	if err == nil {
		if rmErr := os.Remove(filePath); rmErr != nil && !os.IsNotExist(rmErr) {
			err = fmt.Errorf("failed to delete file %s: %w", filePath, rmErr)
		}
	}

	metrics.RecordBlobOperation(fs.Type(), "delete", time.Since(start), err == nil)
	return err
}

// Type returns "fs".
func (fs *FileSystemStore) Type() string { return "fs" }

func (fs *FileSystemStore) filePath(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(fs.basePath, rel), nil
}
