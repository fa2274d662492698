package domain

import "time"

// FileType is the kind of a local filesystem entry
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeSymlink
)

// FileInfo is what the file-I/O collaborator reports for one local path
type FileInfo struct {
	// Path is relative to the adapter root, '/'-separated
	Path string

	Type FileType

	// Size in bytes, 0 for directories
	Size int64

	ModTime time.Time
}

// IsDir returns true if this is a directory
func (f FileInfo) IsDir() bool {
	return f.Type == FileTypeDirectory
}

// IsFile returns true if this is a regular file
func (f FileInfo) IsFile() bool {
	return f.Type == FileTypeRegular
}

// ItemType maps the entry to the catalog item type. Symlinks are Unknown.
func (f FileInfo) ItemType() ItemType {
	switch f.Type {
	case FileTypeRegular:
		return ItemTypeFile
	case FileTypeDirectory:
		return ItemTypeDir
	}
	return ItemTypeUnknown
}
