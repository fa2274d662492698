//go:build windows

package local

import (
	"io"
	"os"
	"path/filepath"
)

// writeAtomic writes a sibling temp file and renames it over path
func writeAtomic(path string, r io.Reader) error {
	// hidden name so directory readers skip it
	tempPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(file, r)
	syncErr := file.Sync()
	closeErr := file.Close()
	for _, err := range []error{copyErr, syncErr, closeErr} {
		if err != nil {
			os.Remove(tempPath)
			return err
		}
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
