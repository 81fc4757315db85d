package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, n int) (*LocalStore, []string) {
	t.Helper()
	roots := make([]string, n)
	for i := range roots {
		roots[i] = t.TempDir()
	}
	s, err := NewLocalStore(roots, "/media")
	require.NoError(t, err)
	return s, roots
}

func TestLocalPutWritesAllRoots(t *testing.T) {
	s, roots := newTestStore(t, 2)
	ctx := context.Background()

	url, err := s.Put(ctx, "listings/a.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/media/listings/a.jpg", url)

	for _, root := range roots {
		data, err := os.ReadFile(filepath.Join(root, "listings", "a.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("bytes"), data)
	}
}

func TestLocalPutSucceedsIfAnyRootSucceeds(t *testing.T) {
	good := t.TempDir()

	// A root whose path is an existing file cannot be written into.
	brokenParent := t.TempDir()
	broken := filepath.Join(brokenParent, "occupied")
	require.NoError(t, os.WriteFile(broken, []byte("in the way"), 0o644))

	s, err := NewLocalStore([]string{broken, good}, "/media")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Put(ctx, "listings/a.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err, "one healthy root is enough")

	data, _, err := s.Get(ctx, "listings/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)
}

func TestLocalPutFailsWhenAllRootsFail(t *testing.T) {
	parent := t.TempDir()
	broken := filepath.Join(parent, "occupied")
	require.NoError(t, os.WriteFile(broken, []byte("in the way"), 0o644))

	s, err := NewLocalStore([]string{broken}, "/media")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "listings/a.jpg", []byte("bytes"), "image/jpeg")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLocalGetFallsBackAcrossRoots(t *testing.T) {
	s, roots := newTestStore(t, 2)
	ctx := context.Background()

	// Place a file only in the second root, as if the first tree was wiped.
	p := filepath.Join(roots[1], "listings", "b.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("survivor"), 0o644))

	data, contentType, err := s.Get(ctx, "listings/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("survivor"), data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestLocalGetMiss(t *testing.T) {
	s, _ := newTestStore(t, 2)
	_, _, err := s.Get(context.Background(), "listings/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalDeleteIdempotent(t *testing.T) {
	s, _ := newTestStore(t, 2)
	ctx := context.Background()

	_, err := s.Put(ctx, "listings/c.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "listings/c.jpg"))
	require.NoError(t, s.Delete(ctx, "listings/c.jpg"), "deleting a missing key is a no-op")

	ok, err := s.Exists(ctx, "listings/c.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalExists(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "listings/d.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Put(ctx, "listings/d.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err)

	ok, err = s.Exists(ctx, "listings/d.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalRejectsRootEscape(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()

	_, err := s.Put(ctx, "../outside.jpg", []byte("bytes"), "image/jpeg")
	assert.Error(t, err)

	_, _, err = s.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLocalDeleteMany(t *testing.T) {
	s, _ := newTestStore(t, 2)
	ctx := context.Background()

	for _, k := range []string{"a.jpg", "b.jpg"} {
		_, err := s.Put(ctx, k, []byte("x"), "image/jpeg")
		require.NoError(t, err)
	}

	failed := s.DeleteMany(ctx, []string{"a.jpg", "b.jpg", "never-there.jpg"})
	assert.Empty(t, failed)
}

func TestNewLocalStoreRequiresRoot(t *testing.T) {
	_, err := NewLocalStore(nil, "/media")
	assert.Error(t, err)
}
