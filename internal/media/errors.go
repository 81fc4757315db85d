package media

import "errors"

// Sentinel errors returned by the gateway. Backend-specific failures
// (credentials, network, bucket, access) are classified and logged inside the
// storage package and collapse to ErrBackendUnavailable before reaching
// callers, so retry decisions stay uniform.
var (
	// ErrInvalidInput marks requests rejected before any I/O: empty batch,
	// zero-length buffer, or a declared content type that is not an image.
	ErrInvalidInput = errors.New("media: invalid input")

	// ErrInvalidImageData marks upload bytes that could not be decoded as an
	// image. It aborts the whole batch.
	ErrInvalidImageData = errors.New("media: undecodable image data")

	// ErrBackendUnavailable means the remote store failed (or is disabled) and
	// the local fallback also failed.
	ErrBackendUnavailable = errors.New("media: no storage backend available")
)
