package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}

	return &MinioStorage{client: client, bucket: bucket}, nil
}

// Put streams reader to MinIO under key. Pass size -1 only if the size is
// genuinely unknown; MinIO will buffer it.
func (s *MinioStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Get opens the object at key. GetObject is lazy, so the object is stat'ed
// first to surface a missing key before any bytes are read.
func (s *MinioStorage) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}

	return &Object{
		Key:         key,
		Body:        obj,
		ContentType: info.ContentType,
		Size:        info.Size,
	}, nil
}

// Delete removes the object at key from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}
