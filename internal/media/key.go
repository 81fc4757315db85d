package media

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Variant subfolders inserted between an asset's folder and its filename.
const (
	thumbnailDir = "thumbnails"
	mediumDir    = "medium"
	largeDir     = "large"
)

// Key is the canonical folder+filename address of a stored asset.
type Key struct {
	Folder   string
	Filename string
}

// String renders the normalized "folder/filename" form used by both storage
// tiers.
func (k Key) String() string {
	return Normalize(k.Folder + "/" + k.Filename)
}

// ParseKey splits a normalized key string back into folder and filename. A
// bare filename yields an empty folder.
func ParseKey(s string) Key {
	s = Normalize(s)
	dir, file := path.Split(s)
	return Key{Folder: strings.TrimSuffix(dir, "/"), Filename: file}
}

// Normalize returns the canonical form of a raw key string: leading slash
// stripped, empty segments dropped, and any folder segment immediately
// repeated collapsed to one ("images/images/x.jpg" -> "images/x.jpg").
// Upstream folder concatenation has historically produced such duplicates.
// Total and idempotent.
func Normalize(raw string) string {
	segs := strings.Split(raw, "/")
	out := segs[:0]
	prev := ""
	for _, s := range segs {
		if s == "" || s == prev {
			continue
		}
		out = append(out, s)
		prev = s
	}
	return strings.Join(out, "/")
}

// NewFilename returns an opaque, collision-free filename that keeps the
// original's extension. Uniqueness by construction means the filesystem tiers
// need no write locking.
func NewFilename(original string) string {
	ext := strings.ToLower(path.Ext(original))
	if ext == "" {
		ext = ".jpg"
	}
	return uuid.NewString() + ext
}

// WithVariantDir places k's filename under a variant subfolder of its folder.
func (k Key) WithVariantDir(dir string) Key {
	return Key{Folder: Normalize(k.Folder + "/" + dir), Filename: k.Filename}
}

// ThumbnailKey derives the thumbnail sibling key for an original's key.
func ThumbnailKey(k Key) Key {
	return k.WithVariantDir(thumbnailDir)
}

// SiblingKeys derives every variant sibling an original at k may have.
// Deriving a sibling that was never written is harmless: deletion of a
// missing key is a silent no-op on both tiers.
func SiblingKeys(k Key) []Key {
	return []Key{
		k.WithVariantDir(thumbnailDir),
		k.WithVariantDir(mediumDir),
		k.WithVariantDir(largeDir),
	}
}
