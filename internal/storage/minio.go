package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStore implements ObjectStore against a MinIO (or any S3-compatible)
// backend. Configuration is a capability: constructed without credentials the
// store reports Enabled() == false and the gateway never calls it. To switch
// providers, change the endpoint and credentials — no code changes are needed.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
	enabled    bool
}

// MinioConfig carries the remote tier's connection settings. Empty Endpoint
// or AccessKey yields a disabled store.
type MinioConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicBase string
}

// NewMinioStore creates a MinIO client and ensures the bucket exists with a
// public-read policy. When the config carries no endpoint or credentials it
// returns a disabled store and no error, so an unconfigured remote tier is a
// deployment mode, not a failure.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" {
		return &MinioStore{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("storage: created bucket")
	}

	if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		enabled:    true,
	}, nil
}

// Enabled reports whether the remote tier is configured.
func (s *MinioStore) Enabled() bool { return s.enabled }

// Put stores data under key and returns its public URL.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if !s.enabled {
		return "", ErrDisabled
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", s.classify("put", key, err)
	}
	return s.PublicURL(key), nil
}

// Get returns the object bytes and content type at key.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if !s.enabled {
		return nil, "", ErrDisabled
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", s.classify("get", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", s.classify("get", key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", s.classify("stat", key, err)
	}
	return data, stat.ContentType, nil
}

// Exists reports whether key holds an object.
func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	if !s.enabled {
		return false, ErrDisabled
	}
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, s.classify("stat", key, err)
	}
	return true, nil
}

// Delete removes the object at key. Missing keys succeed silently.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return s.classify("delete", key, err)
	}
	return nil
}

// DeleteMany removes keys with the client's streaming batch-delete call and
// returns the keys the backend reported as failed. Missing keys are not
// failures.
func (s *MinioStore) DeleteMany(ctx context.Context, keys []string) []string {
	if !s.enabled || len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var failed []string
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err == nil || isNoSuchKey(rerr.Err) {
			continue
		}
		log.Warn().Err(rerr.Err).Str("key", rerr.ObjectName).Msg("storage: batch delete failed for key")
		failed = append(failed, rerr.ObjectName)
	}
	return failed
}

// PublicURL returns the browser-accessible URL for the given key.
// For local MinIO: "http://localhost:9000/media/listings/file.jpg"
// For a CDN front: "https://cdn.example.com/listings/file.jpg"
func (s *MinioStore) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// classify maps a backend error to its cause for the log line, then collapses
// it to ErrUnavailable so the fallback decision upstream is uniform.
func (s *MinioStore) classify(op, key string, err error) error {
	cause := "unknown"
	var netErr net.Error
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "InvalidAccessKeyId" || resp.Code == "SignatureDoesNotMatch" || resp.Code == "ExpiredToken":
		cause = "credentials"
	case resp.Code == "NoSuchBucket":
		cause = "bucket not found"
	case resp.Code == "AccessDenied":
		cause = "access denied"
	case errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded):
		cause = "network"
	}
	log.Warn().Err(err).Str("op", op).Str("key", key).Str("cause", cause).Msg("storage: remote operation failed")
	return fmt.Errorf("%w: %s %q: %s", ErrUnavailable, op, key, cause)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET
// on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
