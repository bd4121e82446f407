// Package storage defines the object store the gateway writes images to.
// Drivers are chosen at startup: minio works with any S3-compatible endpoint,
// s3 uses the AWS SDK (AWS S3, Cloudflare R2) and memory keeps objects in-process.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gallery-widget/gateway/internal/config"
)

const defaultMinioEndpoint = "localhost:9000"

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Object is a stored object opened for reading. Callers must close Body.
type Object struct {
	Key         string
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Storage is the interface for keyed object operations.
type Storage interface {
	// Put stores data under key, replacing any existing object.
	// size may be -1 when unknown.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Get opens the object at key, or returns ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the driver selected by cfg.StorageDriver. It returns a nil
// Storage and nil error when no driver is configured.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMinio:
		endpoint := cfg.StorageEndpoint
		if endpoint == "" {
			endpoint = defaultMinioEndpoint
		}
		s, err := NewMinioStorage(ctx, endpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageUseSSL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverS3:
		s, err := NewS3Storage(ctx, S3Options{
			Endpoint:  cfg.StorageEndpoint,
			Region:    cfg.StorageRegion,
			Bucket:    cfg.StorageBucket,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
