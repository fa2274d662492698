// Package adapter defines the file-I/O collaborator of the catalog
package adapter

import (
	"context"
	"errors"
	"io"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Adapter gives the catalog access to one directory tree: the local
// source files for Scan and AddLocalPath, the backups directory for
// version fragments, and the index directory for SaveIndex/LoadIndex.
// Paths are relative to the adapter root and '/'-separated.
type Adapter interface {
	// List returns the direct entries of path
	// Returns domain.ErrNotFound if path doesn't exist
	List(ctx context.Context, path string) ([]domain.FileInfo, error)

	// Read opens a file for reading; the caller closes it
	// Returns domain.ErrNotFile if path is a directory
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write replaces a file atomically, creating parent directories.
	// Readers never observe a partially written file.
	Write(ctx context.Context, path string, r io.Reader) error

	// Delete removes a file or an empty directory
	Delete(ctx context.Context, path string) error

	// RemoveAll removes path and everything below it and reports how many
	// files and bytes went away. A missing path is not an error.
	RemoveAll(ctx context.Context, path string) (files int, bytes int64, err error)

	// Stat returns metadata for a single path
	Stat(ctx context.Context, path string) (domain.FileInfo, error)

	// Mkdir creates a directory and any necessary parents
	Mkdir(ctx context.Context, path string) error

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases any resources held by the adapter
	Close() error
}

// WalkFunc is called for every entry below the walked path, parents first
type WalkFunc func(info domain.FileInfo) error

// Walk visits path and everything below it through a.List. Directories
// that vanish during the walk are skipped.
func Walk(ctx context.Context, a Adapter, path string, fn WalkFunc) error {
	root, err := a.Stat(ctx, path)
	if err != nil {
		return err
	}
	if err := fn(root); err != nil {
		return err
	}
	if !root.IsDir() {
		return nil
	}
	return walkDir(ctx, a, path, fn)
}

func walkDir(ctx context.Context, a Adapter, path string, fn WalkFunc) error {
	entries, err := a.List(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		if e.IsDir() {
			if err := walkDir(ctx, a, e.Path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
