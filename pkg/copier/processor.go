package copier

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/NDilbone/Backupper/pkg/plog"
	"github.com/NDilbone/Backupper/pkg/util"
)

// Task is a single file copy scheduled by the walker for the worker pool.
type Task struct {
	Src  string
	Dst  string
	Info fs.FileInfo
}

// DirectoryProcessor walks the source tree, mirrors its directory
// structure under the destination and submits one Task per regular file.
// The walk itself is single threaded; only file contents are copied
// concurrently.
type DirectoryProcessor struct {
	exclusions *ExclusionList
	submit     func(Task) bool
}

// NewDirectoryProcessor builds a walker that hands tasks to submit.
// submit returns false when the engine is no longer accepting work, which
// stops the walk early.
func NewDirectoryProcessor(exclusions *ExclusionList, submit func(Task) bool) *DirectoryProcessor {
	return &DirectoryProcessor{exclusions: exclusions, submit: submit}
}

// Process recursively mirrors src into dst. Directory creation failures
// propagate because nothing below an uncreatable directory can succeed.
// Unreadable directories and excluded entries are logged and skipped.
func (p *DirectoryProcessor) Process(src, dst string) error {
	perm := os.FileMode(0755)
	if info, err := os.Stat(src); err == nil {
		// Keep the source's mode but never create a directory we would
		// not be able to write into on the next run.
		perm = util.WithUserWritePermission(info.Mode().Perm())
	}
	if err := os.MkdirAll(dst, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if p.exclusions.Matches(filepath.ToSlash(srcPath)) {
			plog.Notice("EXCLUDE", "path", srcPath)
			continue
		}

		if entry.IsDir() {
			if err := p.Process(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			plog.Warn("Skipping unreadable entry", "path", srcPath, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			plog.Debug("Skipping non-regular file", "path", srcPath, "mode", info.Mode().String())
			continue
		}

		if !p.submit(Task{Src: srcPath, Dst: dstPath, Info: info}) {
			return fmt.Errorf("copy engine stopped accepting work at %s", srcPath)
		}
	}
	return nil
}
