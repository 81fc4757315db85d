package storage

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMinioStoreDisabledWithoutCredentials(t *testing.T) {
	s, err := NewMinioStore(context.Background(), MinioConfig{})
	require.NoError(t, err, "an unconfigured remote tier is a deployment mode, not a failure")
	assert.False(t, s.Enabled())
}

func TestMinioStoreDisabledOperations(t *testing.T) {
	s, err := NewMinioStore(context.Background(), MinioConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Put(ctx, "k", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrDisabled)
	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.Exists(ctx, "k")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, s.Delete(ctx, "k"), ErrDisabled)
	assert.Empty(t, s.DeleteMany(ctx, []string{"k"}))
}

func TestClassifyCollapsesToUnavailable(t *testing.T) {
	s := &MinioStore{enabled: true}

	cases := []error{
		minio.ErrorResponse{Code: "InvalidAccessKeyId"},
		minio.ErrorResponse{Code: "SignatureDoesNotMatch"},
		minio.ErrorResponse{Code: "NoSuchBucket"},
		minio.ErrorResponse{Code: "AccessDenied"},
		context.DeadlineExceeded,
		assert.AnError,
	}
	for _, cause := range cases {
		err := s.classify("put", "listings/x.jpg", cause)
		assert.ErrorIs(t, err, ErrUnavailable, "cause %v must collapse to ErrUnavailable", cause)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(assert.AnError))
}
