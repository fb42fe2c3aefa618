// Package copier implements the concurrent snapshot copy engine: a
// single-threaded directory walker feeding a fixed pool of copy workers.
package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/NDilbone/Backupper/pkg/checksum"
	"github.com/NDilbone/Backupper/pkg/plog"
	"github.com/NDilbone/Backupper/pkg/retry"
)

// copyBufferSize is the size of the pooled buffers used for file data.
const copyBufferSize = 32 * 1024

// ErrIntegrity indicates the copied file's checksum did not match the
// source. The corrupt copy is removed before this is returned so a retry
// starts clean.
var ErrIntegrity = errors.New("checksum mismatch after copy")

// bufferPool recycles copy buffers across workers.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, copyBufferSize)
		return &buf
	},
}

// FileCopier copies individual files with retry and post-copy verification.
// One instance is shared by all workers of an engine.
type FileCopier struct {
	retrier *retry.Handler
	failed  *FailureSet
}

func NewFileCopier(retrier *retry.Handler, failed *FailureSet) *FileCopier {
	return &FileCopier{retrier: retrier, failed: failed}
}

// Copy transfers src to dst and verifies the result, reporting success.
// The whole copy-and-verify sequence is the retry unit, so a corrupt write
// gets a fresh attempt from scratch. An exhausted retry budget records src
// in the failure set instead of aborting the run.
func (c *FileCopier) Copy(ctx context.Context, src, dst string, info fs.FileInfo) bool {
	ok := c.retrier.Do(ctx, "copy "+src, func() error {
		if err := copyFileContents(src, dst, info); err != nil {
			return err
		}
		if !checksum.Verify(src, dst) {
			// Remove the corrupt copy so a retry does not
			// compare against stale data.
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				plog.Warn("Failed to remove corrupt copy", "path", dst, "error", err)
			}
			return fmt.Errorf("%w: %s", ErrIntegrity, dst)
		}
		return nil
	})
	if !ok {
		plog.Error("Giving up on file after retries", "path", src)
		c.failed.Add(src)
		return false
	}
	plog.Notice("COPY", "path", src)
	return true
}

// copyFileContents performs a single overwrite copy of src to dst,
// preserving the source's permission bits.
func copyFileContents(src, dst string, info fs.FileInfo) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination %s: %w", dst, closeErr)
		}
	}()

	buf := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(buf)

	if _, err := io.CopyBuffer(out, in, *buf); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
