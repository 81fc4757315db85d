package media

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/autohub/media/internal/storage"
)

const (
	// hitTTL is the cache lifetime for resolved assets. Assets are immutable
	// once written (replacement writes a new key), so the TTL can be long.
	hitTTL = 30 * 24 * time.Hour

	// missTTL is the cache lifetime for the placeholder, kept short so a
	// later successful upload is picked up quickly.
	missTTL = time.Minute

	// maxCachedBytes caps the size of a single cached entry so the bounded
	// entry count also bounds memory.
	maxCachedBytes = 1 << 20
)

// Resolved is the outcome of a read: either the stored asset or the
// placeholder. Resolution never fails; a miss is a placeholder, not an error,
// because image-serving endpoints must not 5xx on missing media.
type Resolved struct {
	Bytes       []byte
	ContentType string
	CacheTTL    time.Duration
	Placeholder bool
}

// Resolver answers reads for previously stored assets by trying the remote
// tier, then an ordered list of local candidate layouts, then the
// placeholder.
type Resolver struct {
	remote    storage.ObjectStore
	local     storage.ObjectStore
	cache     *expirable.LRU[string, Resolved]
	opTimeout time.Duration
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithReadCache adds a bounded TTL'd read cache in front of both tiers.
// Entries larger than maxCachedBytes are never cached.
func WithReadCache(size int, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if size > 0 {
			r.cache = expirable.NewLRU[string, Resolved](size, nil, ttl)
		}
	}
}

// WithResolveTimeout overrides the per-tier lookup timeout.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.opTimeout = d
		}
	}
}

// NewResolver wires the tiers; remote may be disabled.
func NewResolver(remote, local storage.ObjectStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{remote: remote, local: local, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the asset stored at rawKey, or the placeholder when no tier
// holds it. Remote errors degrade to the local candidates rather than
// propagating.
func (r *Resolver) Resolve(ctx context.Context, rawKey string) Resolved {
	key := Normalize(rawKey)
	if key == "" {
		return placeholder()
	}

	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			return hit
		}
	}

	if r.remote != nil && r.remote.Enabled() {
		if res, ok := r.tryGet(ctx, r.remote, key); ok {
			return r.cached(key, res)
		}
	}

	for _, candidate := range candidateKeys(key) {
		if res, ok := r.tryGet(ctx, r.local, candidate); ok {
			return r.cached(key, res)
		}
	}

	return placeholder()
}

func (r *Resolver) tryGet(ctx context.Context, store storage.ObjectStore, key string) (Resolved, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	data, contentType, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("media: resolve lookup failed, trying next tier")
		}
		return Resolved{}, false
	}
	return Resolved{Bytes: data, ContentType: contentType, CacheTTL: hitTTL}, true
}

func (r *Resolver) cached(key string, res Resolved) Resolved {
	if r.cache != nil && len(res.Bytes) <= maxCachedBytes {
		r.cache.Add(key, res)
	}
	return res
}

// candidateKeys lists the local layouts a key may live under, newest first.
// The flat and "images/"-prefixed forms cover assets written by earlier
// versions of the upload path.
func candidateKeys(key string) []string {
	k := ParseKey(key)
	candidates := []string{key}
	if k.Folder != "" {
		candidates = append(candidates, k.Filename, Normalize("images/"+key))
	}
	return candidates
}

func placeholder() Resolved {
	return Resolved{
		Bytes:       placeholderImage(),
		ContentType: "image/png",
		CacheTTL:    missTTL,
		Placeholder: true,
	}
}
