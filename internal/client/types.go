package client

import (
	"path/filepath"
	"strings"
)

// extensionTypes maps file extensions to the folder type that accepts them.
var extensionTypes = map[string]string{
	".csv":  "csv",
	".pdf":  "pdf",
	".ppt":  "ppt",
	".pptx": "ppt",
	".img":  "img",
	".png":  "img",
	".jpg":  "img",
	".jpeg": "img",
	".gif":  "img",
	".webp": "img",
}

// FolderTypeFor returns the folder type that accepts a file with this name.
func FolderTypeFor(name string) (string, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]
	return t, ok
}

// MimeTypeFor returns the MIME type sent for a file of the given folder type.
// The server admits a file when its MIME subtype equals the folder type.
func MimeTypeFor(folderType string) string {
	return "application/" + folderType
}
