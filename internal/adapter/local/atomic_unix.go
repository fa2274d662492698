//go:build !windows

package local

import (
	"io"

	"github.com/google/renameio"
)

// writeAtomic writes through a temp file in the target directory, fsyncs
// it and renames it over path
func writeAtomic(path string, r io.Reader) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if _, err := io.Copy(t, r); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}
