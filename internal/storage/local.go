package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/driftdb/driftdb/internal/errors"
)

// LocalStore implements ArchiveStore on the local filesystem, used for
// development and tests.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a filesystem store rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.NewStorageError(errors.CodeUploadFailed, "failed to create base directory", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Put copies a local file into the store.
func (l *LocalStore) Put(ctx context.Context, localPath, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := l.fullPath(objectPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to create object directory", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to open source file", err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to create object file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to copy object", err)
	}
	return dst.Sync()
}

// Get copies an object out of the store.
func (l *LocalStore) Get(ctx context.Context, objectPath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath := l.fullPath(objectPath)
	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewStorageError(errors.CodeObjectNotFound, "object "+objectPath+" not found", err)
		}
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to open object", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to create destination directory", err)
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to create destination file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to copy object", err)
	}
	return nil
}

// Exists reports whether the object is present.
func (l *LocalStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(l.fullPath(objectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List walks the store under prefix and returns the relative object paths.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var objects []string
	err := filepath.Walk(l.fullPath(prefix), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(l.basePath, path)
			if err != nil {
				return err
			}
			objects = append(objects, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// Delete removes an object. Idempotent, matching S3 semantics.
func (l *LocalStore) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(l.fullPath(objectPath)); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(errors.CodeUploadFailed, "failed to delete object", err)
	}
	return nil
}

func (l *LocalStore) fullPath(objectPath string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(objectPath))
}
