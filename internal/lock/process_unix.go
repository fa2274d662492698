//go:build !windows

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// holderAlive reports whether the process recorded in a lock file still runs.
// Signal 0 probes without delivering anything; EPERM still means alive.
func holderAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
