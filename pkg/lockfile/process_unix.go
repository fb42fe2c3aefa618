//go:build !windows

package lockfile

import (
	"os"
	"syscall"
)

// processDead probes pid with signal 0, which checks for existence without
// affecting the process.
func processDead(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
