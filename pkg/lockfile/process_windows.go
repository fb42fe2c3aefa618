//go:build windows

package lockfile

import "os"

// processDead relies on FindProcess, which on Windows opens a handle to
// the process and fails when it no longer exists.
func processDead(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	proc.Release()
	return false
}
