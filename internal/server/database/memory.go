package database

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository implements Repository in process memory. A single lock
// guards folders and files so every check-then-write is one critical section.
type MemoryRepository struct {
	mu            sync.RWMutex
	folders       []*Folder
	files         []*File
	tombstones    []*Tombstone
	nextTombstone int64
	now           func() time.Time
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func cloneFolder(f *Folder) *Folder {
	c := *f
	return &c
}

func cloneFile(f *File) *File {
	c := *f
	if f.Description != nil {
		d := *f.Description
		c.Description = &d
	}
	return &c
}

func (r *MemoryRepository) folderIndex(id string) int {
	for i, f := range r.folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) fileIndex(folderID, fileID string, status FileStatus) int {
	for i, f := range r.files {
		if f.ID == fileID && f.FolderID == folderID && f.Status == status {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) nameTaken(name, exceptID string) bool {
	for _, f := range r.folders {
		if f.Name == name && f.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateFolder(_ context.Context, folder *Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(folder.Name, "") {
		return ErrFolderNameTaken
	}
	r.folders = append(r.folders, cloneFolder(folder))
	return nil
}

func (r *MemoryRepository) GetFolder(_ context.Context, id string) (*Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.folderIndex(id)
	if i < 0 {
		return nil, ErrFolderNotFound
	}
	return cloneFolder(r.folders[i]), nil
}

func (r *MemoryRepository) ListFolders(_ context.Context) ([]*Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Folder, 0, len(r.folders))
	for _, f := range r.folders {
		out = append(out, cloneFolder(f))
	}
	return out, nil
}

func (r *MemoryRepository) UpdateFolder(_ context.Context, id string, patch FolderPatch) (*Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.folderIndex(id)
	if i < 0 {
		return nil, ErrFolderNotFound
	}
	folder := r.folders[i]

	if patch.Name != nil {
		if r.nameTaken(*patch.Name, id) {
			return nil, ErrFolderNameTaken
		}
		folder.Name = *patch.Name
	}
	if patch.MaxFileLimit != nil {
		folder.MaxFileLimit = *patch.MaxFileLimit
	}
	folder.UpdatedAt = r.now().UTC()
	return cloneFolder(folder), nil
}

func (r *MemoryRepository) DeleteFolder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.folderIndex(id)
	if i < 0 {
		return ErrFolderNotFound
	}
	for _, f := range r.files {
		if f.FolderID == id {
			return ErrFolderNotEmpty
		}
	}
	r.folders = append(r.folders[:i], r.folders[i+1:]...)
	return nil
}

func (r *MemoryRepository) ReserveFile(_ context.Context, file *File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.folderIndex(file.FolderID)
	if i < 0 {
		return ErrFolderNotFound
	}

	count := 0
	for _, f := range r.files {
		if f.FolderID == file.FolderID {
			count++
		}
	}
	if count >= r.folders[i].MaxFileLimit {
		return ErrFolderFull
	}

	file.Status = FileStatusPending
	file.ReservedAt = r.now().UTC()
	r.files = append(r.files, cloneFile(file))
	return nil
}

func (r *MemoryRepository) CommitFile(_ context.Context, file *File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.fileIndex(file.FolderID, file.ID, FileStatusPending)
	if i < 0 {
		return ErrFileNotFound
	}
	stored := r.files[i]
	stored.URL = file.URL
	stored.PublicID = file.PublicID
	stored.Checksum = file.Checksum
	stored.UploadedAt = file.UploadedAt
	stored.Status = FileStatusCommitted
	file.Status = FileStatusCommitted
	return nil
}

func (r *MemoryRepository) ReleaseFile(_ context.Context, folderID, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.fileIndex(folderID, fileID, FileStatusPending)
	if i < 0 {
		return ErrFileNotFound
	}
	r.files = append(r.files[:i], r.files[i+1:]...)
	return nil
}

func (r *MemoryRepository) ListFiles(_ context.Context, folderID string) ([]*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.folderIndex(folderID) < 0 {
		return nil, ErrFolderNotFound
	}
	out := []*File{}
	for _, f := range r.files {
		if f.FolderID == folderID && f.Status == FileStatusCommitted {
			out = append(out, cloneFile(f))
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListFilesByType(_ context.Context, mimeType string) ([]*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*File{}
	for _, f := range r.files {
		if f.Type == mimeType && f.Status == FileStatusCommitted {
			out = append(out, cloneFile(f))
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateFileDescription(_ context.Context, folderID, fileID, description string) (*File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.folderIndex(folderID) < 0 {
		return nil, ErrFolderNotFound
	}
	i := r.fileIndex(folderID, fileID, FileStatusCommitted)
	if i < 0 {
		return nil, ErrFileNotFound
	}
	r.files[i].Description = &description
	return cloneFile(r.files[i]), nil
}

func (r *MemoryRepository) DeleteFile(_ context.Context, folderID, fileID string) (*File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.folderIndex(folderID) < 0 {
		return nil, ErrFolderNotFound
	}
	i := r.fileIndex(folderID, fileID, FileStatusCommitted)
	if i < 0 {
		return nil, ErrFileNotFound
	}
	deleted := r.files[i]
	r.files = append(r.files[:i], r.files[i+1:]...)
	return deleted, nil
}

func (r *MemoryRepository) ReleaseStaleReservations(_ context.Context, before time.Time) ([]*File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := []*File{}
	kept := r.files[:0]
	for _, f := range r.files {
		if f.Status == FileStatusPending && f.ReservedAt.Before(before) {
			released = append(released, f)
			continue
		}
		kept = append(kept, f)
	}
	r.files = kept
	return released, nil
}

func (r *MemoryRepository) AddTombstone(_ context.Context, publicID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTombstone++
	r.tombstones = append(r.tombstones, &Tombstone{
		ID:        r.nextTombstone,
		PublicID:  publicID,
		Attempts:  1,
		LastError: reason,
		CreatedAt: r.now().UTC(),
	})
	return nil
}

func (r *MemoryRepository) ListTombstones(_ context.Context, limit int) ([]*Tombstone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Tombstone{}
	for _, t := range r.tombstones {
		if len(out) == limit {
			break
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryRepository) RecordTombstoneAttempt(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tombstones {
		if t.ID == id {
			t.Attempts++
			t.LastError = reason
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) DeleteTombstone(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.tombstones {
		if t.ID == id {
			r.tombstones = append(r.tombstones[:i], r.tombstones[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) HealthCheck(context.Context) error {
	return nil
}
