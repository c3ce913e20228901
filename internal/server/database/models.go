package database

import "time"

// FileStatus tracks whether a file row holds a capacity slot only
// (pending) or is a visible, admitted file (committed).
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusCommitted FileStatus = "committed"
)

// Folder is a named container restricting its files to one type and a maximum count.
type Folder struct {
	ID           string
	Name         string
	Type         string
	MaxFileLimit int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FolderPatch carries the optional fields of a folder update. Nil fields are left unchanged.
type FolderPatch struct {
	Name         *string
	MaxFileLimit *int
}

// File is the metadata record of one uploaded object.
type File struct {
	ID          string
	FolderID    string
	Name        string
	Description *string // nil when no description set
	Type        string
	Size        int64
	Checksum    string
	URL         string
	PublicID    string
	Status      FileStatus
	ReservedAt  time.Time
	UploadedAt  time.Time
}

// Tombstone is a blob whose deletion failed and is waiting for a retry.
type Tombstone struct {
	ID        int64
	PublicID  string
	Attempts  int
	LastError string
	CreatedAt time.Time
}
