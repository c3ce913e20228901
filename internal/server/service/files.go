package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"docshelf/internal/server/config"
	"docshelf/internal/server/database"
	"docshelf/internal/server/logging"
	"docshelf/internal/server/metrics"
	"docshelf/internal/server/storage"
)

// UploadInput describes one uploaded file.
type UploadInput struct {
	Name        string
	MimeType    string
	Description string
	Size        int64
	Content     io.Reader
}

// FileService owns the files of each folder: admission, description
// updates, deletion and the listings over them.
type FileService struct {
	repo          database.Repository
	store         storage.Store // nil when no blob backend is configured
	maxUploadSize int64
	blobTimeout   time.Duration
	now           func() time.Time
}

// NewFileService creates a new file service. store may be nil.
func NewFileService(repo database.Repository, store storage.Store, cfg *config.Config) *FileService {
	return &FileService{
		repo:          repo,
		store:         store,
		maxUploadSize: cfg.MaxUploadSize,
		blobTimeout:   cfg.BlobTimeout,
		now:           time.Now,
	}
}

// Upload admits a file into a folder:
// resolves the folder, checks the type, reserves a capacity slot, writes the
// blob and commits the record. Every rejection happens before the blob write.
func (s *FileService) Upload(ctx context.Context, folderID string, in UploadInput) (*File, error) {
	// 1. Resolve folder
	folder, err := lookupFolder(ctx, s.repo, folderID)
	if err != nil {
		return nil, err
	}

	// 2. Type must match the folder
	mediaType, err := checkFileType(in.MimeType, folder.Type)
	if err != nil {
		metrics.RecordUpload("rejected", 0)
		return nil, err
	}

	// 3. Buffer content while computing its checksum
	if in.Size > s.maxUploadSize {
		metrics.RecordUpload("rejected", 0)
		return nil, fmt.Errorf("%w: file exceeds maximum allowed size of %d bytes", ErrValidation, s.maxUploadSize)
	}
	data, checksum, err := s.readContent(in.Content)
	if err != nil {
		metrics.RecordUpload("rejected", 0)
		return nil, err
	}

	file := &database.File{
		ID:       uuid.NewString(),
		FolderID: folder.ID,
		Name:     sanitizeFilename(in.Name),
		Type:     mediaType,
		Size:     int64(len(data)),
		Checksum: checksum,
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		file.Description = &d
	}

	// 4. Reserve a slot; the count check and insert are one atomic step
	if err := s.repo.ReserveFile(ctx, file); err != nil {
		switch {
		case errors.Is(err, database.ErrFolderFull):
			metrics.RecordUpload("rejected", 0)
			return nil, fmt.Errorf("%w: limit of %d files reached", ErrCapacity, folder.MaxFileLimit)
		case errors.Is(err, database.ErrFolderNotFound):
			return nil, folderNotFound()
		}
		metrics.RecordUpload("error", 0)
		return nil, err
	}

	// 5. Write the blob outside any lock, bounded by the blob timeout
	if s.store != nil {
		loc, err := s.putBlob(ctx, file, data)
		if err != nil {
			s.release(file)
			metrics.RecordUpload("error", 0)
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		file.URL = loc.URL
		file.PublicID = loc.PublicID
	}

	// 6. Commit
	file.UploadedAt = s.now().UTC()
	if err := s.repo.CommitFile(ctx, file); err != nil {
		// Clean up the stored blob and the reservation on DB failure
		s.deleteBlob(context.WithoutCancel(ctx), file.PublicID)
		s.release(file)
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("failed to commit file: %w", err)
	}

	metrics.RecordUpload("success", file.Size)
	logging.L().Info("file uploaded",
		logging.String("folder_id", file.FolderID),
		logging.String("file_id", file.ID),
		logging.String("name", file.Name),
		logging.String("type", file.Type),
		logging.Int64("size", file.Size),
	)
	return toFile(file), nil
}

// UpdateDescription replaces the description of a file; no other field changes.
func (s *FileService) UpdateDescription(ctx context.Context, folderID, fileID, description string) (*File, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !validID(folderID) {
		return nil, folderNotFound()
	}
	if !validID(fileID) {
		return nil, fileNotFound()
	}

	file, err := s.repo.UpdateFileDescription(ctx, folderID, fileID, description)
	if err != nil {
		return nil, translateFileError(err)
	}
	return toFile(file), nil
}

// Delete removes a file record, then asks the blob store to drop its
// content. A failed blob delete is logged and queued for the sweeper; it
// never fails the request.
func (s *FileService) Delete(ctx context.Context, folderID, fileID string) error {
	if !validID(folderID) {
		return folderNotFound()
	}
	if !validID(fileID) {
		return fileNotFound()
	}

	file, err := s.repo.DeleteFile(ctx, folderID, fileID)
	if err != nil {
		return translateFileError(err)
	}

	s.deleteBlob(ctx, file.PublicID)

	logging.L().Info("file deleted",
		logging.String("folder_id", folderID),
		logging.String("file_id", fileID),
		logging.String("name", file.Name),
	)
	return nil
}

// ListByFolder returns the files of a folder in stored order.
func (s *FileService) ListByFolder(ctx context.Context, folderID string) ([]*File, error) {
	if !validID(folderID) {
		return nil, folderNotFound()
	}
	files, err := s.repo.ListFiles(ctx, folderID)
	if err != nil {
		return nil, translateFileError(err)
	}
	return toFiles(files), nil
}

// ListByType returns the files of every folder whose type is application/<subtype>.
func (s *FileService) ListByType(ctx context.Context, subtype string) ([]*File, error) {
	if subtype == "" {
		return []*File{}, nil
	}
	files, err := s.repo.ListFilesByType(ctx, "application/"+subtype)
	if err != nil {
		return nil, err
	}
	return toFiles(files), nil
}

// MetadataByFolder returns the metadata projection of a folder's files.
func (s *FileService) MetadataByFolder(ctx context.Context, folderID string) ([]*FileMetadata, error) {
	files, err := s.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	out := make([]*FileMetadata, 0, len(files))
	for _, f := range files {
		out = append(out, &FileMetadata{
			FileID:      f.FileID,
			Name:        f.Name,
			Size:        f.Size,
			Description: f.Description,
		})
	}
	return out, nil
}

// SortedByFolder returns a folder's files ordered by sortKey (see SortFiles).
func (s *FileService) SortedByFolder(ctx context.Context, folderID, sortKey string) ([]*File, error) {
	files, err := s.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return SortFiles(files, sortKey), nil
}

// --- Helpers ---

func (s *FileService) readContent(r io.Reader) ([]byte, string, error) {
	if r == nil {
		return nil, "", fmt.Errorf("%w: file content is required", ErrValidation)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create hasher: %w", err)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.TeeReader(io.LimitReader(r, s.maxUploadSize+1), hasher))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload data: %w", err)
	}
	if n > s.maxUploadSize {
		return nil, "", fmt.Errorf("%w: file exceeds maximum allowed size of %d bytes", ErrValidation, s.maxUploadSize)
	}

	return buf.Bytes(), hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *FileService) putBlob(ctx context.Context, file *database.File, data []byte) (storage.Locator, error) {
	putCtx, cancel := context.WithTimeout(ctx, s.blobTimeout)
	defer cancel()

	key := storage.ObjectKey(file.FolderID, file.ID, file.Name)
	loc, err := s.store.Put(putCtx, key, bytes.NewReader(data), int64(len(data)), file.Type)
	if err != nil {
		if errors.Is(putCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", s.blobTimeout, err)
		}
		logging.L().Error("failed to store blob",
			logging.String("file_id", file.ID),
			logging.String("key", key),
			logging.Err(err),
		)
		return storage.Locator{}, err
	}
	return loc, nil
}

// release drops a reservation. It runs detached from the request context
// so a cancelled request still frees its slot.
func (s *FileService) release(file *database.File) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.ReleaseFile(ctx, file.FolderID, file.ID); err != nil {
		logging.L().Error("failed to release reservation",
			logging.String("file_id", file.ID),
			logging.Err(err),
		)
	}
}

func (s *FileService) deleteBlob(ctx context.Context, publicID string) {
	if s.store == nil || publicID == "" {
		return
	}

	delCtx, cancel := context.WithTimeout(ctx, s.blobTimeout)
	defer cancel()

	if err := s.store.Delete(delCtx, publicID); err != nil {
		// Continue with the metadata delete even if blob deletion fails
		logging.L().Error("failed to delete blob, queued for sweep",
			logging.String("public_id", publicID),
			logging.Err(err),
		)
		if err := s.repo.AddTombstone(context.WithoutCancel(ctx), publicID, err.Error()); err != nil {
			logging.L().Error("failed to record blob tombstone",
				logging.String("public_id", publicID),
				logging.Err(err),
			)
		}
	}
}

func translateFileError(err error) error {
	switch {
	case errors.Is(err, database.ErrFolderNotFound):
		return folderNotFound()
	case errors.Is(err, database.ErrFileNotFound):
		return fileNotFound()
	}
	return err
}
