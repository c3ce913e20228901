package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCheckFileType(t *testing.T) {
	tests := []struct {
		name       string
		mimeType   string
		folderType string
		want       string
	}{
		{"matching subtype", "application/pdf", "pdf", "application/pdf"},
		{"parameters ignored", "application/csv; charset=utf-8", "csv", "application/csv"},
		{"case folded", "Application/PDF", "pdf", "application/pdf"},
		{"other top-level type", "image/img", "img", "image/img"},
		{"different subtype", "application/csv", "pdf", ""},
		{"no subtype", "application", "pdf", ""},
		{"empty", "", "pdf", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkFileType(tt.mimeType, tt.folderType)
			if tt.want != "" {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				assert.ErrorIs(t, err, ErrTypeMismatch)
			}
		})
	}

	t.Run("type longer than the column", func(t *testing.T) {
		_, err := checkFileType(strings.Repeat("a", 300)+"/pdf", "pdf")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("6f1c1f04-5a9e-4c36-9a39-3c1d4f0b8e21"))
	assert.False(t, validID(""))
	assert.False(t, validID("42"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "file.pdf", "file.pdf"},
		{"strips directory", "/path/to/file.pdf", "file.pdf"},
		{"strips windows path", "C:\\Users\\test\\file.csv", "file.csv"},
		{"empty name", "", "upload"},
		{"dot name", ".", "upload"},
		{"replaces slashes", "a/b/c.ppt", "c.ppt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}

	t.Run("limits length and keeps extension", func(t *testing.T) {
		result := sanitizeFilename(strings.Repeat("a", 300) + ".pdf")
		assert.Len(t, result, 255)
		assert.True(t, strings.HasSuffix(result, ".pdf"))
	})

	t.Run("does not split multibyte runes", func(t *testing.T) {
		result := sanitizeFilename(strings.Repeat("a", 250) + "éééé.pdf")
		assert.True(t, utf8.ValidString(result))
		assert.LessOrEqual(t, len(result), 255)
		assert.True(t, strings.HasSuffix(result, ".pdf"))
	})
}
