package storage

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LocalStore implements ObjectStore over N parallel local directory trees.
// The default deployment uses two: an internal/server tree and a tree the
// static file server exposes directly. Every write goes to all roots and
// succeeds if at least one root succeeds; a write failing on every root is a
// hard failure for that object. Reads fall back across roots in order.
type LocalStore struct {
	roots      []string
	publicBase string
}

// NewLocalStore resolves the configured roots to absolute paths. Directories
// are created lazily on first write, so a root on a not-yet-mounted volume
// does not fail startup.
func NewLocalStore(roots []string, publicBase string) (*LocalStore, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("local store: at least one root is required")
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", r, err)
		}
		abs = append(abs, a)
	}
	return &LocalStore{roots: abs, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Enabled always reports true; the local tier is the fallback of last resort.
func (s *LocalStore) Enabled() bool { return true }

// Roots returns the absolute root paths, in write order.
func (s *LocalStore) Roots() []string {
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// Put writes data under key in every root. Success requires at least one root
// to accept the write.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var lastErr error
	ok := 0
	for _, root := range s.roots {
		if err := s.writeOne(root, key, data); err != nil {
			lastErr = err
			log.Warn().Err(err).Str("root", root).Str("key", key).Msg("storage: local write failed in root")
			continue
		}
		ok++
	}
	if ok == 0 {
		return "", fmt.Errorf("%w: local write %q: %v", ErrUnavailable, key, lastErr)
	}
	return s.PublicURL(key), nil
}

// Get returns the first root's copy of key. Content type is derived from the
// extension, falling back to sniffing the bytes.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	for _, root := range s.roots {
		p, err := s.abs(root, key)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", fmt.Errorf("read %q: %w", p, err)
		}
		return data, contentTypeFor(key, data), nil
	}
	return nil, "", ErrNotFound
}

// Exists reports whether any root holds key.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, root := range s.roots {
		p, err := s.abs(root, key)
		if err != nil {
			return false, err
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes key from every root. Missing files are not errors; a root
// that fails for another reason fails the delete.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, root := range s.roots {
		p, err := s.abs(root, key)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %q: %w", p, err)
		}
	}
	return nil
}

// DeleteMany deletes each key in turn, returning the keys that failed.
func (s *LocalStore) DeleteMany(ctx context.Context, keys []string) []string {
	var failed []string
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("storage: local batch delete failed for key")
			failed = append(failed, k)
		}
	}
	return failed
}

// PublicURL maps a key onto the path the static file server exposes.
func (s *LocalStore) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// writeOne lands data at root/key via a temp file and an atomic rename, with
// lazy recursive directory creation. Rename keeps concurrent readers from
// ever observing a partial file.
func (s *LocalStore) writeOne(root, key string, data []byte) error {
	dest, err := s.abs(root, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".media-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename to %q: %w", dest, err)
	}
	return nil
}

// abs resolves key to a concrete path under root and rejects anything that
// escapes it (".." segments and the like slipping past key normalization).
func (s *LocalStore) abs(root, key string) (string, error) {
	joined := filepath.Join(root, filepath.Clean(filepath.FromSlash(key)))
	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return joined, nil
}

func contentTypeFor(key string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
