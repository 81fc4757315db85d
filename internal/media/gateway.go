package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autohub/media/internal/storage"
)

const (
	// defaultMaxParallel bounds concurrent per-file uploads within one batch
	// so a batch cannot exhaust the remote store's connection pool.
	defaultMaxParallel = 4

	// defaultOpTimeout bounds each backend call; an unresponsive remote must
	// not stall the whole batch.
	defaultOpTimeout = 10 * time.Second

	// rollbackTimeout bounds best-effort cleanup of a failed batch. Rollback
	// runs on a fresh context so cancellation of the initiating request does
	// not strand orphans.
	rollbackTimeout = 30 * time.Second
)

// UploadInput is one file of an upload batch as handed over by the multipart
// layer.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoreOptions control one Store call.
type StoreOptions struct {
	// PrimaryIndex designates which input is the primary image. Out-of-range
	// values fall back to index 0.
	PrimaryIndex int

	// PreserveOriginal disables resizing and thumbnailing and stores the
	// upload bytes unchanged.
	PreserveOriginal bool

	// Quality overrides the JPEG re-encode quality; zero means the default.
	Quality int
}

// UploadResult describes one stored asset. Results are ordered exactly as the
// inputs were; callers index into them positionally.
type UploadResult struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Key          string `json:"key"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	ContentType  string `json:"content_type"`
	IsPrimary    bool   `json:"is_primary"`
}

// Gateway orchestrates variant generation and the two storage tiers. It is
// the only entry point other code uses to write media.
type Gateway struct {
	remote      storage.ObjectStore
	local       storage.ObjectStore
	maxParallel int
	opTimeout   time.Duration
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithMaxParallel overrides the per-batch upload fan-out bound.
func WithMaxParallel(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxParallel = n
		}
	}
}

// WithOpTimeout overrides the per-backend-call timeout.
func WithOpTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.opTimeout = d
		}
	}
}

// NewGateway wires the two tiers. remote may be a disabled store; local must
// be usable.
func NewGateway(remote, local storage.ObjectStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		remote:      remote,
		local:       local,
		maxParallel: defaultMaxParallel,
		opTimeout:   defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// writeRecord tracks what one file's store attempt actually wrote, for batch
// rollback.
type writeRecord struct {
	backend Backend
	keys    []string
}

// Store uploads a batch of files into folder. The batch is all-or-nothing:
// any per-file failure (undecodable bytes, both tiers down) aborts the whole
// call, deletes whatever earlier files already wrote, and returns no results.
// Callers treat the returned slice as positionally aligned with files, so a
// short slice is never produced.
//
// All of one file's variants land on the same backend, keeping reads and
// deletes single-path per asset.
func (g *Gateway) Store(ctx context.Context, files []UploadInput, folder string, opts StoreOptions) ([]UploadResult, error) {
	if err := validateBatch(files); err != nil {
		return nil, err
	}
	folder = Normalize(folder)

	results := make([]UploadResult, len(files))
	written := make([]writeRecord, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxParallel)
	for i := range files {
		i := i
		eg.Go(func() error {
			return g.storeOne(egCtx, files[i], folder, opts, &results[i], &written[i])
		})
	}
	if err := eg.Wait(); err != nil {
		g.rollback(written)
		return nil, err
	}

	primary := opts.PrimaryIndex
	if primary < 0 || primary >= len(results) {
		primary = 0
	}
	results[primary].IsPrimary = true
	return results, nil
}

// storeOne generates one file's variants and lands them all on one backend.
// Keys are recorded in rec as they are written, including writes made before
// a later variant failed, so rollback sees everything.
func (g *Gateway) storeOne(ctx context.Context, in UploadInput, folder string, opts StoreOptions, res *UploadResult, rec *writeRecord) error {
	set, err := Generate(in.Data, in.ContentType, GenerateOptions{
		PreserveOriginal: opts.PreserveOriginal,
		Quality:          opts.Quality,
	})
	if err != nil {
		return err
	}

	key := Key{Folder: folder, Filename: NewFilename(in.Filename)}
	entries := variantEntries(key, set)

	var remoteErr error
	if g.remote != nil && g.remote.Enabled() {
		rec.backend = BackendRemote
		remoteErr = g.putAll(ctx, g.remote, entries, rec)
		if remoteErr != nil {
			// Partial remote writes are cleaned here so fallback starts from
			// nothing; the batch-level rollback only needs completed files.
			g.cleanupRecord(rec)
			log.Warn().Err(remoteErr).Str("key", key.String()).Msg("media: remote write failed, falling back to local")
		}
	} else {
		remoteErr = storage.ErrDisabled
	}

	backend := chooseBackend(g.remote != nil && g.remote.Enabled(), remoteErr)
	store := g.remote
	if backend == BackendLocal {
		rec.backend = BackendLocal
		store = g.local
		if err := g.putAll(ctx, g.local, entries, rec); err != nil {
			g.cleanupRecord(rec)
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	res.Key = key.String()
	res.URL = store.PublicURL(res.Key)
	res.SizeBytes = set.Original.Size()
	res.ContentType = set.Original.ContentType
	if set.Thumbnail != nil {
		res.ThumbnailKey = ThumbnailKey(key).String()
		res.ThumbnailURL = store.PublicURL(res.ThumbnailKey)
	}
	return nil
}

type variantEntry struct {
	key  string
	data VariantData
}

// variantEntries maps a variant set onto its storage keys: the original at
// the key itself, derived variants under their sibling subfolders.
func variantEntries(key Key, set *VariantSet) []variantEntry {
	entries := []variantEntry{{key: key.String(), data: set.Original}}
	if set.Thumbnail != nil {
		entries = append(entries, variantEntry{key: ThumbnailKey(key).String(), data: *set.Thumbnail})
	}
	if set.Medium != nil {
		entries = append(entries, variantEntry{key: key.WithVariantDir(mediumDir).String(), data: *set.Medium})
	}
	if set.Large != nil {
		entries = append(entries, variantEntry{key: key.WithVariantDir(largeDir).String(), data: *set.Large})
	}
	return entries
}

// putAll writes every entry to one backend, recording each successful key.
func (g *Gateway) putAll(ctx context.Context, store storage.ObjectStore, entries []variantEntry, rec *writeRecord) error {
	for _, e := range entries {
		if err := g.put(ctx, store, e); err != nil {
			return err
		}
		rec.keys = append(rec.keys, e.key)
	}
	return nil
}

func (g *Gateway) put(ctx context.Context, store storage.ObjectStore, e variantEntry) error {
	ctx, cancel := context.WithTimeout(ctx, g.opTimeout)
	defer cancel()
	_, err := store.Put(ctx, e.key, e.data.Data, e.data.ContentType)
	return err
}

// rollback deletes everything a failed batch managed to write, best-effort,
// on a fresh context so an aborted request still gets cleaned up.
func (g *Gateway) rollback(written []writeRecord) {
	for i := range written {
		g.cleanupRecord(&written[i])
	}
}

func (g *Gateway) cleanupRecord(rec *writeRecord) {
	if len(rec.keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()

	store := g.local
	if rec.backend == BackendRemote {
		store = g.remote
	}
	if failed := store.DeleteMany(ctx, rec.keys); len(failed) > 0 {
		log.Error().Strs("keys", failed).Str("backend", string(rec.backend)).Msg("media: rollback left orphaned variants")
	}
	rec.keys = nil
}

// validateBatch rejects bad input before any I/O.
func validateBatch(files []UploadInput) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	for i, f := range files {
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: file %d (%q) is empty", ErrInvalidInput, i, f.Filename)
		}
		if f.ContentType != "" && !strings.HasPrefix(f.ContentType, "image/") {
			return fmt.Errorf("%w: file %d (%q) has non-image content type %q", ErrInvalidInput, i, f.Filename, f.ContentType)
		}
	}
	return nil
}
