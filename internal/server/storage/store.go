package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

// Locator identifies a stored blob. URL is where clients can fetch it and
// PublicID is the backend key used for deletion.
type Locator struct {
	URL      string
	PublicID string
}

// Store defines the interface for blob storage backends.
type Store interface {
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (Locator, error)
	Delete(ctx context.Context, publicID string) error
	Type() string
}

// ObjectKey derives the blob key for a file. It depends only on ids and the
// file name, so a key can be recomputed for a reservation that never committed.
func ObjectKey(folderID, fileID, name string) string {
	return path.Join(folderID, fileID+cleanExt(name))
}

func cleanExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
