// Package storage provides the object store snapshots and ledger exports are
// archived to. Implementations cover S3 and the local filesystem.
package storage

import (
	"context"
	"fmt"

	"github.com/driftdb/driftdb/internal/config"
)

// ArchiveStore abstracts the object store snapshot artifacts are pushed to.
type ArchiveStore interface {
	// Put uploads a local file to objectPath.
	Put(ctx context.Context, localPath, objectPath string) error

	// Get downloads objectPath to a local file.
	Get(ctx context.Context, objectPath, localPath string) error

	// Exists reports whether objectPath is present.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error
}

// FromConfig builds the archive store described by the storage configuration.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (ArchiveStore, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStore(cfg.Path)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown storage type %q", cfg.Type)
	}
}
