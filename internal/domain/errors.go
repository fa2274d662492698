package domain

import "errors"

// Structural errors - the index trees disagree or a node has the wrong shape.
// These are fatal for the current operation and never repaired automatically.
var (
	// ErrIndexCorrupted indicates the by-name and by-id views of a namespace diverged
	ErrIndexCorrupted = errors.New("index corrupted")

	// ErrNotDirectory indicates a directory node was expected but a file was found
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates a file node was expected but a directory was found
	ErrNotFile = errors.New("not a file")

	// ErrInvalidPathID indicates a path id component is not a non-negative integer
	ErrInvalidPathID = errors.New("invalid path id")
)

// Lookup errors
var (
	// ErrNotFound indicates the requested path, id or version does not exist.
	// Plain lookups report absence with an ok flag instead.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the entry is already present
	ErrAlreadyExists = errors.New("already exists")
)

// Sync errors
var (
	// ErrStaleRevision marks a snapshot whose revision is not newer than the known one
	ErrStaleRevision = errors.New("stale revision")

	// ErrInvalidSnapshot indicates a malformed or incomplete snapshot document
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrUnknownOwner indicates the owner of a snapshot could not be resolved
	ErrUnknownOwner = errors.New("unknown owner")

	// ErrLocked indicates another process holds the index directory
	ErrLocked = errors.New("index directory locked")
)

// Local file-I/O errors
var (
	// ErrPermissionDenied indicates insufficient permissions or a path escaping the adapter root
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotEmpty indicates a directory still has entries
	ErrNotEmpty = errors.New("directory not empty")
)

// Codec errors
var (
	// ErrInvalidBackupID indicates a malformed backup id
	ErrInvalidBackupID = errors.New("invalid backup id")

	// ErrInvalidKeyID indicates a key id without an alias or owner part
	ErrInvalidKeyID = errors.New("invalid key id")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
