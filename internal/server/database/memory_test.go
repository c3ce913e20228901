package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFolder(id, name string, limit int) *Folder {
	now := time.Now().UTC()
	return &Folder{ID: id, Name: name, Type: "pdf", MaxFileLimit: limit, CreatedAt: now, UpdatedAt: now}
}

func newTestFile(folderID, id string) *File {
	return &File{ID: id, FolderID: folderID, Name: id + ".pdf", Type: "application/pdf", Size: 10}
}

func commit(t *testing.T, repo *MemoryRepository, f *File) {
	t.Helper()
	require.NoError(t, repo.ReserveFile(context.Background(), f))
	f.UploadedAt = time.Now().UTC()
	require.NoError(t, repo.CommitFile(context.Background(), f))
}

func TestMemoryRepository_Folders(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects duplicate names", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "Invoices", 2)))

		err := repo.CreateFolder(ctx, newTestFolder("f2", "Invoices", 2))
		assert.ErrorIs(t, err, ErrFolderNameTaken)

		folders, err := repo.ListFolders(ctx)
		require.NoError(t, err)
		assert.Len(t, folders, 1)
	})

	t.Run("update rejects a name owned by another folder", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 2)))
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f2", "b", 2)))

		name := "a"
		_, err := repo.UpdateFolder(ctx, "f2", FolderPatch{Name: &name})
		assert.ErrorIs(t, err, ErrFolderNameTaken)

		// renaming to its own name is fine
		name = "b"
		_, err = repo.UpdateFolder(ctx, "f2", FolderPatch{Name: &name})
		assert.NoError(t, err)
	})

	t.Run("returned folders are copies", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 2)))

		got, err := repo.GetFolder(ctx, "f1")
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := repo.GetFolder(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "a", again.Name)
	})

	t.Run("delete refuses a folder with files", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 2)))
		commit(t, repo, newTestFile("f1", "x"))

		assert.ErrorIs(t, repo.DeleteFolder(ctx, "f1"), ErrFolderNotEmpty)

		_, err := repo.DeleteFile(ctx, "f1", "x")
		require.NoError(t, err)
		assert.NoError(t, repo.DeleteFolder(ctx, "f1"))
		assert.ErrorIs(t, repo.DeleteFolder(ctx, "f1"), ErrFolderNotFound)
	})
}

func TestMemoryRepository_Reservations(t *testing.T) {
	ctx := context.Background()

	t.Run("pending rows hold capacity but stay hidden", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 1)))

		require.NoError(t, repo.ReserveFile(ctx, newTestFile("f1", "x")))
		assert.ErrorIs(t, repo.ReserveFile(ctx, newTestFile("f1", "y")), ErrFolderFull)

		files, err := repo.ListFiles(ctx, "f1")
		require.NoError(t, err)
		assert.Empty(t, files)

		require.NoError(t, repo.ReleaseFile(ctx, "f1", "x"))
		assert.NoError(t, repo.ReserveFile(ctx, newTestFile("f1", "y")))
	})

	t.Run("reserve on a missing folder", func(t *testing.T) {
		repo := NewMemoryRepository()
		assert.ErrorIs(t, repo.ReserveFile(ctx, newTestFile("nope", "x")), ErrFolderNotFound)
	})

	t.Run("concurrent reservations never exceed the limit", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 5)))

		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := repo.ReserveFile(ctx, newTestFile("f1", fmt.Sprintf("file-%d", i))); err == nil {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 5, admitted)
	})

	t.Run("stale reservations are released", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 3)))

		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return base }
		require.NoError(t, repo.ReserveFile(ctx, newTestFile("f1", "old")))
		repo.now = func() time.Time { return base.Add(time.Hour) }
		require.NoError(t, repo.ReserveFile(ctx, newTestFile("f1", "fresh")))

		released, err := repo.ReleaseStaleReservations(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, released, 1)
		assert.Equal(t, "old", released[0].ID)

		assert.ErrorIs(t, repo.ReleaseFile(ctx, "f1", "old"), ErrFileNotFound)
		assert.NoError(t, repo.ReleaseFile(ctx, "f1", "fresh"))
	})
}

func TestMemoryRepository_Files(t *testing.T) {
	ctx := context.Background()

	t.Run("list keeps upload order", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 5)))
		for _, id := range []string{"c", "a", "b"} {
			commit(t, repo, newTestFile("f1", id))
		}

		files, err := repo.ListFiles(ctx, "f1")
		require.NoError(t, err)
		require.Len(t, files, 3)
		assert.Equal(t, "c", files[0].ID)
		assert.Equal(t, "a", files[1].ID)
		assert.Equal(t, "b", files[2].ID)
	})

	t.Run("files are scoped to their folder", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 5)))
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f2", "b", 5)))
		commit(t, repo, newTestFile("f1", "x"))

		_, err := repo.DeleteFile(ctx, "f2", "x")
		assert.ErrorIs(t, err, ErrFileNotFound)
		_, err = repo.DeleteFile(ctx, "missing", "x")
		assert.ErrorIs(t, err, ErrFolderNotFound)

		files, err := repo.ListFiles(ctx, "f1")
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("list by type spans folders", func(t *testing.T) {
		repo := NewMemoryRepository()
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f1", "a", 5)))
		require.NoError(t, repo.CreateFolder(ctx, newTestFolder("f2", "b", 5)))
		commit(t, repo, newTestFile("f1", "x"))
		commit(t, repo, newTestFile("f2", "y"))
		require.NoError(t, repo.ReserveFile(ctx, newTestFile("f2", "pending")))

		files, err := repo.ListFilesByType(ctx, "application/pdf")
		require.NoError(t, err)
		assert.Len(t, files, 2)

		files, err = repo.ListFilesByType(ctx, "application/csv")
		require.NoError(t, err)
		assert.NotNil(t, files)
		assert.Empty(t, files)
	})
}

func TestMemoryRepository_Tombstones(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.AddTombstone(ctx, "a/b.pdf", "timeout"))
	require.NoError(t, repo.AddTombstone(ctx, "a/c.pdf", "timeout"))

	tombstones, err := repo.ListTombstones(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, "a/b.pdf", tombstones[0].PublicID)

	require.NoError(t, repo.RecordTombstoneAttempt(ctx, tombstones[0].ID, "still failing"))
	require.NoError(t, repo.DeleteTombstone(ctx, tombstones[0].ID))

	tombstones, err = repo.ListTombstones(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, "a/c.pdf", tombstones[0].PublicID)
}
