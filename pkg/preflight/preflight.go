// Package preflight validates the backup environment before any copying
// starts. The checks are cheap and, apart from creating the destination
// root, do not modify the system.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// writeProbeName is the temporary file used to verify the destination is
// actually writable, not just statable.
const writeProbeName = ".backupper-writetest.tmp"

// CheckSource validates that the source path exists and is a directory.
func CheckSource(srcPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source directory %s does not exist", srcPath)
		}
		return fmt.Errorf("cannot stat source directory %s: %w", srcPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", srcPath)
	}
	return nil
}

// CheckDestination ensures the destination root exists, is a directory and
// is writable. It creates the root if missing and probes writability with a
// temporary file rather than trusting permission bits.
func CheckDestination(dstPath string) error {
	if info, err := os.Stat(dstPath); err == nil && !info.IsDir() {
		return fmt.Errorf("destination path %s exists but is not a directory", dstPath)
	}
	if err := os.MkdirAll(dstPath, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", dstPath, err)
	}

	probe := filepath.Join(dstPath, writeProbeName)
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("destination directory %s is not writable: %w", dstPath, err)
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}

// CheckNesting rejects a destination inside the source tree, which would
// make the walker copy its own output.
func CheckNesting(srcPath, dstPath string) error {
	src, err := filepath.Abs(srcPath)
	if err != nil {
		return fmt.Errorf("cannot resolve source path: %w", err)
	}
	dst, err := filepath.Abs(dstPath)
	if err != nil {
		return fmt.Errorf("cannot resolve destination path: %w", err)
	}

	rel, err := filepath.Rel(src, dst)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("destination %s is inside source %s", dstPath, srcPath)
	}
	return nil
}

// CheckFreeSpace warns when the destination volume has less free space than
// the source tree currently occupies. It is advisory only: sparse files and
// exclusions make the estimate pessimistic, so a shortfall never aborts the
// run.
func CheckFreeSpace(srcPath, dstPath string) {
	needed, err := treeSize(srcPath)
	if err != nil {
		plog.Debug("Skipping free space check", "error", err)
		return
	}
	free, err := freeBytes(dstPath)
	if err != nil {
		plog.Debug("Skipping free space check", "error", err)
		return
	}
	if free < needed {
		plog.Warn("Destination may not have enough free space",
			"needed", needed, "free", free, "path", dstPath)
	}
}

// treeSize sums the apparent size of all regular files under root.
func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped here the same way the
			// copy engine skips them later.
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total, err
}
