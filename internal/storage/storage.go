// Package storage abstracts where uploaded document files live. The
// workflow layer only ever sees opaque object keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KMohnishM/SIH-25/internal/config"
)

type Store interface {
	// Save persists the object and returns the key it was stored under.
	Save(ctx context.Context, fileName string, r io.Reader, size int64, contentType string) (string, error)
	// Open returns a reader for a previously stored object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes a stored object.
	Remove(ctx context.Context, key string) error
}

// New selects the backend from configuration.
func New(cfg *config.Configuration, logger *zap.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return NewMinioStore(cfg, logger)
	case "local":
		return NewLocalStore(cfg.Storage.LocalDir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// objectKey builds a collision-free key preserving the original extension.
func objectKey(fileName string) string {
	ext := filepath.Ext(fileName)
	return fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102_150405"), uuid.New().String(), ext)
}
