// Package storage provides the two object-storage tiers behind the media
// gateway: a remote S3-compatible store and a local-filesystem fallback.
// Both implement ObjectStore, so the gateway's fallback, read, and delete
// logic is single-path. The MinIO implementation works with any S3-compatible
// provider (MinIO, ArvanCloud, AWS S3).
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no object.
	ErrNotFound = errors.New("storage: object not found")

	// ErrUnavailable is the uniform failure every classified backend error
	// collapses to. The cause (credentials, network, bucket, access) is
	// logged at the point of classification; fallback decisions upstream
	// treat all causes identically.
	ErrUnavailable = errors.New("storage: backend unavailable")

	// ErrDisabled is returned when an operation is attempted on a tier that
	// is not configured.
	ErrDisabled = errors.New("storage: backend disabled")
)

// ObjectStore is one storage tier.
type ObjectStore interface {
	// Enabled reports whether the tier is configured and may be called.
	Enabled() bool

	// Put stores data under key with the given content type and returns the
	// browser-accessible URL of the stored object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get returns the object bytes and content type, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)

	// Exists reports whether key holds an object.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key. Deleting a missing key is a silent
	// no-op.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes a batch of keys and returns the keys that could not
	// be deleted. Missing keys are not failures.
	DeleteMany(ctx context.Context, keys []string) (failed []string)

	// PublicURL constructs the browser-accessible URL for a key without any
	// I/O.
	PublicURL(key string) string
}
