package service

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docshelf/internal/server/database"
)

// FolderTypes is the fixed set of folder types. A file is admitted into a
// folder when its MIME subtype equals the folder type.
var FolderTypes = []string{"csv", "img", "pdf", "ppt"}

// Folder is the API representation of a folder.
type Folder struct {
	FolderID     string    `json:"folderId"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	MaxFileLimit int       `json:"maxFileLimit"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// File is the API representation of a file.
type File struct {
	FileID      string    `json:"fileId"`
	FolderID    string    `json:"folderId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Type        string    `json:"type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublicID    string    `json:"publicId,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// FileMetadata is the projection returned by the metadata listing.
type FileMetadata struct {
	FileID      string  `json:"fileId"`
	Name        string  `json:"name"`
	Size        int64   `json:"size"`
	Description *string `json:"description,omitempty"`
}

func toFolder(f *database.Folder) *Folder {
	return &Folder{
		FolderID:     f.ID,
		Name:         f.Name,
		Type:         f.Type,
		MaxFileLimit: f.MaxFileLimit,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func toFile(f *database.File) *File {
	return &File{
		FileID:      f.ID,
		FolderID:    f.FolderID,
		Name:        f.Name,
		Description: f.Description,
		Type:        f.Type,
		Size:        f.Size,
		Checksum:    f.Checksum,
		URL:         f.URL,
		PublicID:    f.PublicID,
		UploadedAt:  f.UploadedAt,
	}
}

func toFiles(files []*database.File) []*File {
	out := make([]*File, 0, len(files))
	for _, f := range files {
		out = append(out, toFile(f))
	}
	return out
}

// --- Validation helpers ---

func validFolderType(t string) bool {
	for _, ft := range FolderTypes {
		if ft == t {
			return true
		}
	}
	return false
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required and must be a non-empty string", ErrValidation)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: name must be at most 255 characters", ErrValidation)
	}
	return nil
}

func validateMaxFileLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: maxFileLimit must be a positive integer", ErrValidation)
	}
	return nil
}

// validID reports whether id can name a stored entity. Ids are UUIDs, so
// anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// maxMimeTypeLength bounds the stored type column.
const maxMimeTypeLength = 255

// parseMediaType returns the lower-cased media type without parameters and
// its subtype.
func parseMediaType(mimeType string) (string, string, bool) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", "", false
	}
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok || sub == "" {
		return "", "", false
	}
	return mediaType, sub, true
}

// checkFileType verifies that mimeType belongs in a folder of folderType and
// returns the normalized media type that is stored for the file.
func checkFileType(mimeType, folderType string) (string, error) {
	mediaType, sub, ok := parseMediaType(mimeType)
	if !ok || sub != folderType {
		return "", fmt.Errorf("%w: %q does not match folder type %q", ErrTypeMismatch, mimeType, folderType)
	}
	if len(mediaType) > maxMimeTypeLength {
		return "", fmt.Errorf("%w: type must be at most %d characters", ErrValidation, maxMimeTypeLength)
	}
	return mediaType, nil
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		// Cut on a rune boundary so the name stays valid UTF-8
		cut := 255 - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}

	if name == "" || name == "." || name == "/" {
		name = "upload"
	}

	return name
}
