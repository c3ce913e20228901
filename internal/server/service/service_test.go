package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"docshelf/internal/server/config"
	"docshelf/internal/server/database"
	"docshelf/internal/server/storage"
)

// fakeStore is an in-memory blob store whose failures can be switched on.
type fakeStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	puts       int
	failPut    bool
	blockPut   bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data io.Reader, _ int64, _ string) (storage.Locator, error) {
	f.mu.Lock()
	f.puts++
	block, fail := f.blockPut, f.failPut
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return storage.Locator{}, ctx.Err()
	}
	if fail {
		return storage.Locator{}, errors.New("backend unavailable")
	}

	b, err := io.ReadAll(data)
	if err != nil {
		return storage.Locator{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = b
	return storage.Locator{URL: "http://blobs.test/" + key, PublicID: key}, nil
}

func (f *fakeStore) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("backend unavailable")
	}
	delete(f.blobs, publicID)
	return nil
}

func (f *fakeStore) Type() string { return "fake" }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

func (f *fakeStore) putCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func testConfig() *config.Config {
	return &config.Config{
		MaxUploadSize: 1024,
		BlobTimeout:   time.Second,
	}
}

// newTestServices wires both services over a fresh memory repository.
func newTestServices(store *fakeStore) (*FolderService, *FileService, *database.MemoryRepository) {
	repo := database.NewMemoryRepository()
	var s storage.Store
	if store != nil {
		s = store
	}
	return NewFolderService(repo), NewFileService(repo, s, testConfig()), repo
}
