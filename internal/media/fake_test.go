package media

import (
	"context"
	"sync"

	"github.com/autohub/media/internal/storage"
)

// fakeStore is an in-memory ObjectStore with failure toggles, standing in for
// the remote tier (and, where the filesystem is irrelevant, the local one).
type fakeStore struct {
	mu          sync.Mutex
	enabled     bool
	failPuts    bool
	failDeletes map[string]bool
	objects     map[string][]byte
	types       map[string]string
	getCalls    int
	base        string
}

func newFakeStore(enabled bool) *fakeStore {
	return &fakeStore{
		enabled:     enabled,
		objects:     make(map[string][]byte),
		types:       make(map[string]string),
		failDeletes: make(map[string]bool),
		base:        "http://fake.test/media",
	}
}

func (f *fakeStore) Enabled() bool { return f.enabled }

func (f *fakeStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPuts {
		return "", storage.ErrUnavailable
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = cp
	f.types[key] = contentType
	return f.PublicURL(key), nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	data, ok := f.objects[key]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return data, f.types[key], nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeletes[key] {
		return storage.ErrUnavailable
	}
	delete(f.objects, key)
	delete(f.types, key)
	return nil
}

func (f *fakeStore) DeleteMany(ctx context.Context, keys []string) []string {
	var failed []string
	for _, k := range keys {
		if err := f.Delete(ctx, k); err != nil {
			failed = append(failed, k)
		}
	}
	return failed
}

func (f *fakeStore) PublicURL(key string) string { return f.base + "/" + key }

func (f *fakeStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
