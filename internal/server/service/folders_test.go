package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFolderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a folder with a fresh id", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)

		folder, err := folders.Create(ctx, CreateFolderInput{Name: "Invoices", Type: "pdf", MaxFileLimit: 2})
		require.NoError(t, err)
		assert.NotEmpty(t, folder.FolderID)
		assert.Equal(t, "Invoices", folder.Name)
		assert.Equal(t, "pdf", folder.Type)
		assert.Equal(t, 2, folder.MaxFileLimit)
		assert.False(t, folder.CreatedAt.IsZero())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)

		tests := []struct {
			name string
			in   CreateFolderInput
		}{
			{"empty name", CreateFolderInput{Name: "", Type: "pdf", MaxFileLimit: 1}},
			{"blank name", CreateFolderInput{Name: "   ", Type: "pdf", MaxFileLimit: 1}},
			{"long name", CreateFolderInput{Name: strings.Repeat("a", 256), Type: "pdf", MaxFileLimit: 1}},
			{"unknown type", CreateFolderInput{Name: "a", Type: "docx", MaxFileLimit: 1}},
			{"zero limit", CreateFolderInput{Name: "a", Type: "pdf", MaxFileLimit: 0}},
			{"negative limit", CreateFolderInput{Name: "a", Type: "pdf", MaxFileLimit: -3}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := folders.Create(ctx, tt.in)
				assert.ErrorIs(t, err, ErrValidation)
			})
		}

		list, err := folders.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("duplicate name is a conflict", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)

		_, err := folders.Create(ctx, CreateFolderInput{Name: "Invoices", Type: "pdf", MaxFileLimit: 2})
		require.NoError(t, err)
		_, err = folders.Create(ctx, CreateFolderInput{Name: "Invoices", Type: "csv", MaxFileLimit: 5})
		assert.ErrorIs(t, err, ErrConflict)

		list, err := folders.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestFolderService_Get(t *testing.T) {
	ctx := context.Background()
	folders, _, _ := newTestServices(nil)

	created, err := folders.Create(ctx, CreateFolderInput{Name: "Reports", Type: "csv", MaxFileLimit: 3})
	require.NoError(t, err)

	got, err := folders.Get(ctx, created.FolderID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = folders.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = folders.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFolderService_List(t *testing.T) {
	ctx := context.Background()
	folders, _, _ := newTestServices(nil)

	for _, name := range []string{"a", "b", "c"} {
		_, err := folders.Create(ctx, CreateFolderInput{Name: name, Type: "img", MaxFileLimit: 1})
		require.NoError(t, err)
	}

	list, err := folders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "c", list[2].Name)
}

func TestFolderService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only provided fields", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)
		created, err := folders.Create(ctx, CreateFolderInput{Name: "old", Type: "ppt", MaxFileLimit: 2})
		require.NoError(t, err)

		updated, err := folders.Update(ctx, created.FolderID, UpdateFolderInput{MaxFileLimit: ptr(10)})
		require.NoError(t, err)
		assert.Equal(t, "old", updated.Name)
		assert.Equal(t, 10, updated.MaxFileLimit)
		assert.Equal(t, "ppt", updated.Type)

		updated, err = folders.Update(ctx, created.FolderID, UpdateFolderInput{Name: ptr("new")})
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Name)
		assert.Equal(t, 10, updated.MaxFileLimit)
	})

	t.Run("validates fields", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)
		created, err := folders.Create(ctx, CreateFolderInput{Name: "x", Type: "ppt", MaxFileLimit: 2})
		require.NoError(t, err)

		_, err = folders.Update(ctx, created.FolderID, UpdateFolderInput{Name: ptr("")})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = folders.Update(ctx, created.FolderID, UpdateFolderInput{MaxFileLimit: ptr(0)})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("renaming onto an existing name is a conflict", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)
		_, err := folders.Create(ctx, CreateFolderInput{Name: "taken", Type: "pdf", MaxFileLimit: 1})
		require.NoError(t, err)
		other, err := folders.Create(ctx, CreateFolderInput{Name: "other", Type: "pdf", MaxFileLimit: 1})
		require.NoError(t, err)

		_, err = folders.Update(ctx, other.FolderID, UpdateFolderInput{Name: ptr("taken")})
		assert.ErrorIs(t, err, ErrConflict)

		// keeping its own name is fine
		_, err = folders.Update(ctx, other.FolderID, UpdateFolderInput{Name: ptr("other")})
		assert.NoError(t, err)
	})

	t.Run("missing folder", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)
		_, err := folders.Update(ctx, uuid.NewString(), UpdateFolderInput{Name: ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFolderService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes an empty folder", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)
		created, err := folders.Create(ctx, CreateFolderInput{Name: "x", Type: "csv", MaxFileLimit: 1})
		require.NoError(t, err)

		require.NoError(t, folders.Delete(ctx, created.FolderID))
		_, err = folders.Get(ctx, created.FolderID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("refuses a folder with files", func(t *testing.T) {
		folders, files, _ := newTestServices(newFakeStore())
		created, err := folders.Create(ctx, CreateFolderInput{Name: "x", Type: "csv", MaxFileLimit: 1})
		require.NoError(t, err)
		_, err = files.Upload(ctx, created.FolderID, csvUpload("a.csv"))
		require.NoError(t, err)

		err = folders.Delete(ctx, created.FolderID)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing folder", func(t *testing.T) {
		folders, _, _ := newTestServices(nil)
		assert.ErrorIs(t, folders.Delete(ctx, uuid.NewString()), ErrNotFound)
	})
}
