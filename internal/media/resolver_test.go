package media

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMissReturnsPlaceholder(t *testing.T) {
	local, _ := newTestLocal(t)
	r := NewResolver(newFakeStore(false), local)

	res := r.Resolve(context.Background(), "listings/never-stored.jpg")
	assert.True(t, res.Placeholder)
	assert.Equal(t, "image/png", res.ContentType)
	assert.NotEmpty(t, res.Bytes)
	assert.Less(t, res.CacheTTL, time.Hour, "miss must carry a short TTL")
}

func TestResolveEmptyKey(t *testing.T) {
	local, _ := newTestLocal(t)
	r := NewResolver(newFakeStore(false), local)

	res := r.Resolve(context.Background(), "")
	assert.True(t, res.Placeholder)
}

func TestResolveRemoteFirst(t *testing.T) {
	remote := newFakeStore(true)
	local, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := remote.Put(ctx, "listings/a.jpg", []byte("remote bytes"), "image/jpeg")
	require.NoError(t, err)
	_, err = local.Put(ctx, "listings/a.jpg", []byte("stale local copy"), "image/jpeg")
	require.NoError(t, err)

	r := NewResolver(remote, local)
	res := r.Resolve(ctx, "listings/a.jpg")
	assert.False(t, res.Placeholder)
	assert.Equal(t, []byte("remote bytes"), res.Bytes)
	assert.GreaterOrEqual(t, res.CacheTTL, 24*time.Hour, "hit must carry a long TTL")
}

func TestResolveRemoteErrorDegradesToLocal(t *testing.T) {
	// Enabled remote with no objects: the miss falls through to local.
	remote := newFakeStore(true)
	local, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := local.Put(ctx, "listings/b.jpg", []byte("local bytes"), "image/jpeg")
	require.NoError(t, err)

	r := NewResolver(remote, local)
	res := r.Resolve(ctx, "listings/b.jpg")
	assert.False(t, res.Placeholder)
	assert.Equal(t, []byte("local bytes"), res.Bytes)
}

func TestResolveLegacyFlatLayout(t *testing.T) {
	// Assets written by the old upload path live flat under the root; a
	// folder-qualified key must still find them.
	local, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := local.Put(ctx, "legacy.jpg", []byte("old layout"), "image/jpeg")
	require.NoError(t, err)

	r := NewResolver(newFakeStore(false), local)
	res := r.Resolve(ctx, "listings/legacy.jpg")
	assert.False(t, res.Placeholder)
	assert.Equal(t, []byte("old layout"), res.Bytes)
}

func TestResolveLegacyImagesPrefix(t *testing.T) {
	local, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := local.Put(ctx, "images/listings/c.jpg", []byte("prefixed layout"), "image/jpeg")
	require.NoError(t, err)

	r := NewResolver(newFakeStore(false), local)
	res := r.Resolve(ctx, "listings/c.jpg")
	assert.False(t, res.Placeholder)
	assert.Equal(t, []byte("prefixed layout"), res.Bytes)
}

func TestResolveNormalizesKey(t *testing.T) {
	local, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := local.Put(ctx, "listings/d.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err)

	r := NewResolver(newFakeStore(false), local)
	res := r.Resolve(ctx, "/listings/listings/d.jpg")
	assert.False(t, res.Placeholder)
}

func TestResolveReadCache(t *testing.T) {
	remote := newFakeStore(true)
	ctx := context.Background()
	_, err := remote.Put(ctx, "listings/e.jpg", []byte("cached bytes"), "image/jpeg")
	require.NoError(t, err)

	local, _ := newTestLocal(t)
	r := NewResolver(remote, local, WithReadCache(16, time.Minute))

	first := r.Resolve(ctx, "listings/e.jpg")
	second := r.Resolve(ctx, "listings/e.jpg")
	assert.Equal(t, first.Bytes, second.Bytes)
	assert.Equal(t, 1, remote.getCalls, "second resolve must be served from cache")

	// Misses are not cached, so a later upload is picked up.
	_ = r.Resolve(ctx, "listings/not-there.jpg")
	_, err = remote.Put(ctx, "listings/not-there.jpg", []byte("late"), "image/jpeg")
	require.NoError(t, err)
	res := r.Resolve(ctx, "listings/not-there.jpg")
	assert.False(t, res.Placeholder)
}
