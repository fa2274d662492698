// Package local implements adapter.Adapter on the local filesystem
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Adapter is a local directory tree
type Adapter struct {
	root string
}

// New creates an adapter rooted at an existing directory
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{root: absRoot}, nil
}

// NewOrCreate is New after creating root when it is missing
func NewOrCreate(root string) (*Adapter, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, mapError(err)
	}
	return New(root)
}

// resolvePath maps a relative path into root, rejecting escapes
func (a *Adapter) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." || relPath == "/" {
		return a.root, nil
	}

	relPath = filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(relPath) {
		return "", domain.ErrPermissionDenied
	}

	fullPath := filepath.Join(a.root, relPath)

	// Rel also catches root="C:\root" vs fullPath="C:\root2"
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// List returns the direct entries of path sorted by name
func (a *Adapter) List(ctx context.Context, path string) ([]domain.FileInfo, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	result := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		info, err := entry.Info()
		if err != nil {
			continue // vanished or unreadable
		}
		result = append(result, fileInfoFromOS(joinRel(path, entry.Name()), info))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	return file, nil
}

// Write replaces the file through a temp file and an atomic rename
func (a *Adapter) Write(ctx context.Context, path string, r io.Reader) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return mapError(err)
	}

	return mapError(writeAtomic(fullPath, r))
}

// Delete removes a file or empty directory
func (a *Adapter) Delete(ctx context.Context, path string) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}
	return mapError(os.Remove(fullPath))
}

// RemoveAll removes a subtree, counting the regular files it held
func (a *Adapter) RemoveAll(ctx context.Context, path string) (int, int64, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return 0, 0, err
	}
	if fullPath == a.root {
		return 0, 0, domain.ErrPermissionDenied
	}

	var files int
	var bytes int64
	err = filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				files++
				bytes += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, mapError(err)
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return files, bytes, mapError(err)
	}
	return files, bytes, nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, path string) (domain.FileInfo, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return domain.FileInfo{}, mapError(err)
	}
	return fileInfoFromOS(path, info), nil
}

// Mkdir creates a directory and any necessary parents
func (a *Adapter) Mkdir(ctx context.Context, path string) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}
	return mapError(os.MkdirAll(fullPath, 0755))
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Close is a no-op
func (a *Adapter) Close() error {
	return nil
}

// Root returns the absolute root directory
func (a *Adapter) Root() string {
	return a.root
}

func joinRel(dir, name string) string {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}

func fileInfoFromOS(path string, info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeRegular
	if info.IsDir() {
		fileType = domain.FileTypeDirectory
	} else if info.Mode()&os.ModeSymlink != 0 {
		fileType = domain.FileTypeSymlink
	}

	size := info.Size()
	if info.IsDir() {
		size = 0
	}

	return domain.FileInfo{
		Path:    strings.Trim(filepath.ToSlash(path), "/"),
		Type:    fileType,
		Size:    size,
		ModTime: info.ModTime(),
	}
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	// os.IsExist also matches ENOTEMPTY
	switch {
	case errors.Is(err, syscall.ENOTEMPTY):
		return domain.ErrNotEmpty
	case os.IsNotExist(err):
		return domain.ErrNotFound
	case os.IsPermission(err):
		return domain.ErrPermissionDenied
	case os.IsExist(err):
		return domain.ErrAlreadyExists
	}
	return err
}
