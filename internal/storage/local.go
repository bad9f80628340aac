package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalStore keeps objects on the local filesystem under a single directory.
// The default backend for development and tests.
type LocalStore struct {
	dir    string
	logger *zap.Logger
}

func NewLocalStore(dir string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return &LocalStore{
		dir:    dir,
		logger: logger.With(zap.String("storage", "local")),
	}, nil
}

func (s *LocalStore) Save(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(fileName)
	path := filepath.Join(s.dir, key)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Debug("object stored", zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	// Keys never contain separators; reject anything that would escape dir.
	if filepath.Base(key) != key {
		return nil, fmt.Errorf("invalid object key %q", key)
	}
	return os.Open(filepath.Join(s.dir, key))
}

func (s *LocalStore) Remove(ctx context.Context, key string) error {
	if filepath.Base(key) != key {
		return fmt.Errorf("invalid object key %q", key)
	}
	return os.Remove(filepath.Join(s.dir, key))
}
