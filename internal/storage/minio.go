package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/KMohnishM/SIH-25/internal/config"
)

// MinioStore keeps objects in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinioStore(cfg *config.Configuration, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Storage.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.MinioAccessKey, cfg.Storage.MinioSecretKey, ""),
		Secure: cfg.Storage.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to minio at %s: %w", cfg.Storage.MinioEndpoint, err)
	}

	store := &MinioStore{
		client: client,
		bucket: cfg.Storage.MinioBucket,
		logger: logger.With(zap.String("storage", "minio")),
	}

	exists, err := client.BucketExists(context.Background(), store.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", store.bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), store.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", store.bucket, err)
		}
		logger.Info("created storage bucket", zap.String("bucket", store.bucket))
	}

	return store, nil
}

func (s *MinioStore) Save(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(fileName)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Debug("object stored", zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return obj, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
