package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrFolderNameTaken = errors.New("folder name already exists")
	ErrFolderNotEmpty  = errors.New("folder still contains files")
	ErrFolderFull      = errors.New("folder has reached its file limit")
	ErrFileNotFound    = errors.New("file not found")
)

// Repository is the storage port for folders and files. Postgres backs it in
// production and MemoryRepository in development and tests.
//
// ReserveFile is the only admission path: it checks the folder's file count
// against its limit and inserts a pending row as one atomic step, so
// concurrent uploads to the same folder can never overshoot the limit.
type Repository interface {
	CreateFolder(ctx context.Context, folder *Folder) error
	GetFolder(ctx context.Context, id string) (*Folder, error)
	ListFolders(ctx context.Context) ([]*Folder, error)
	UpdateFolder(ctx context.Context, id string, patch FolderPatch) (*Folder, error)
	DeleteFolder(ctx context.Context, id string) error

	ReserveFile(ctx context.Context, file *File) error
	CommitFile(ctx context.Context, file *File) error
	ReleaseFile(ctx context.Context, folderID, fileID string) error
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	ListFilesByType(ctx context.Context, mimeType string) ([]*File, error)
	UpdateFileDescription(ctx context.Context, folderID, fileID, description string) (*File, error)
	DeleteFile(ctx context.Context, folderID, fileID string) (*File, error)
	ReleaseStaleReservations(ctx context.Context, before time.Time) ([]*File, error)

	AddTombstone(ctx context.Context, publicID, reason string) error
	ListTombstones(ctx context.Context, limit int) ([]*Tombstone, error)
	RecordTombstoneAttempt(ctx context.Context, id int64, reason string) error
	DeleteTombstone(ctx context.Context, id int64) error

	HealthCheck(ctx context.Context) error
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
