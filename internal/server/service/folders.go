package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docshelf/internal/server/database"
	"docshelf/internal/server/logging"
)

// CreateFolderInput holds the fields of a new folder.
type CreateFolderInput struct {
	Name         string
	Type         string
	MaxFileLimit int
}

// UpdateFolderInput holds a partial folder update. Nil fields are left unchanged.
type UpdateFolderInput struct {
	Name         *string
	MaxFileLimit *int
}

// FolderService owns folders: creation, lookup, partial update and deletion.
type FolderService struct {
	repo database.Repository
	now  func() time.Time
}

// NewFolderService creates a new folder service.
func NewFolderService(repo database.Repository) *FolderService {
	return &FolderService{repo: repo, now: time.Now}
}

// Create validates the input and stores a new folder with a fresh id.
func (s *FolderService) Create(ctx context.Context, in CreateFolderInput) (*Folder, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if !validFolderType(in.Type) {
		return nil, fmt.Errorf("%w: type must be one of %v", ErrValidation, FolderTypes)
	}
	if err := validateMaxFileLimit(in.MaxFileLimit); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	folder := &database.Folder{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Type:         in.Type,
		MaxFileLimit: in.MaxFileLimit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		if errors.Is(err, database.ErrFolderNameTaken) {
			return nil, fmt.Errorf("%w: folder name must be unique", ErrConflict)
		}
		return nil, err
	}

	logging.L().Info("folder created",
		logging.String("folder_id", folder.ID),
		logging.String("name", folder.Name),
		logging.String("type", folder.Type),
		logging.Int("max_file_limit", folder.MaxFileLimit),
	)
	return toFolder(folder), nil
}

// Get returns a folder by id.
func (s *FolderService) Get(ctx context.Context, id string) (*Folder, error) {
	folder, err := lookupFolder(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return toFolder(folder), nil
}

// List returns all folders in creation order.
func (s *FolderService) List(ctx context.Context) ([]*Folder, error) {
	folders, err := s.repo.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Folder, 0, len(folders))
	for _, f := range folders {
		out = append(out, toFolder(f))
	}
	return out, nil
}

// Update applies the provided fields of in. Name uniqueness is enforced
// here as on create.
func (s *FolderService) Update(ctx context.Context, id string, in UpdateFolderInput) (*Folder, error) {
	if !validID(id) {
		return nil, folderNotFound()
	}
	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.MaxFileLimit != nil {
		if err := validateMaxFileLimit(*in.MaxFileLimit); err != nil {
			return nil, err
		}
	}

	folder, err := s.repo.UpdateFolder(ctx, id, database.FolderPatch{
		Name:         in.Name,
		MaxFileLimit: in.MaxFileLimit,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrFolderNotFound):
			return nil, folderNotFound()
		case errors.Is(err, database.ErrFolderNameTaken):
			return nil, fmt.Errorf("%w: folder name must be unique", ErrConflict)
		}
		return nil, err
	}

	logging.L().Info("folder updated", logging.String("folder_id", id))
	return toFolder(folder), nil
}

// Delete removes an empty folder. Folders that still own files are refused
// so no file is left pointing at a missing folder.
func (s *FolderService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return folderNotFound()
	}

	if err := s.repo.DeleteFolder(ctx, id); err != nil {
		switch {
		case errors.Is(err, database.ErrFolderNotFound):
			return folderNotFound()
		case errors.Is(err, database.ErrFolderNotEmpty):
			return fmt.Errorf("%w: folder is not empty, delete its files first", ErrConflict)
		}
		return err
	}

	logging.L().Info("folder deleted", logging.String("folder_id", id))
	return nil
}

func lookupFolder(ctx context.Context, repo database.Repository, id string) (*database.Folder, error) {
	if !validID(id) {
		return nil, folderNotFound()
	}
	folder, err := repo.GetFolder(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrFolderNotFound) {
			return nil, folderNotFound()
		}
		return nil, err
	}
	return folder, nil
}

func folderNotFound() error {
	return fmt.Errorf("%w: folder does not exist", ErrNotFound)
}

func fileNotFound() error {
	return fmt.Errorf("%w: file does not exist in the specified folder", ErrNotFound)
}
