// Package archive turns a finished snapshot directory into a single
// compressed tarball, written next to the snapshot.
package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// Format selects the compression applied to the tar stream.
type Format string

const (
	FormatGzip Format = "gzip"
	FormatZstd Format = "zstd"
)

// writeBufferSize is the size of the buffered writer in front of the
// compressor.
const writeBufferSize = 256 * 1024

// Ext returns the archive file extension for the format.
func (f Format) Ext() string {
	if f == FormatZstd {
		return ".tar.zst"
	}
	return ".tar.gz"
}

// item is one file handed from the walker to the tar writer.
type item struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

// Compress writes the tree rooted at srcDir into a compressed tar archive
// at archivePath. The archive is written to a temp file first and renamed
// into place, so a crashed run never leaves a half-written archive behind.
func Compress(ctx context.Context, srcDir, archivePath string, format Format) (retErr error) {
	plog.Info("Compressing snapshot", "source", srcDir, "archive", archivePath, "format", string(format))

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "backupper-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := writeArchive(ctx, srcDir, tmp, format); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp archive: %w", err)
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return fmt.Errorf("failed to rename temp archive: %w", err)
	}
	return nil
}

// writeArchive streams the tar content through the selected compressor.
// A walker goroutine produces entries while this goroutine owns the single
// tar writer; the tar format is sequential so only the walk runs ahead.
func writeArchive(ctx context.Context, srcDir string, out io.Writer, format Format) (retErr error) {
	bufWriter := bufio.NewWriterSize(out, writeBufferSize)

	var compressor io.WriteCloser
	switch format {
	case FormatZstd:
		zw, err := zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		compressor = zw
	default:
		gw, err := pgzip.NewWriterLevel(bufWriter, pgzip.DefaultCompression)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
		compressor = gw
	}

	tw := tar.NewWriter(compressor)
	defer func() {
		if err := tw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("tar writer close failed: %w", err)
		}
		if err := compressor.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("compressor close failed: %w", err)
		}
		if err := bufWriter.Flush(); err != nil && retErr == nil {
			retErr = fmt.Errorf("buffer flush failed: %w", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	items := make(chan item, 64)

	g.Go(func() error {
		defer close(items)
		return filepath.WalkDir(srcDir, func(absPath string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(srcDir, absPath)
			if err != nil {
				return err
			}
			select {
			case items <- item{absPath: absPath, relPath: filepath.ToSlash(rel), info: info}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	g.Go(func() error {
		for it := range items {
			if err := addFile(tw, it); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// addFile writes one tar entry.
func addFile(tw *tar.Writer, it item) error {
	hdr, err := tar.FileInfoHeader(it.info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", it.relPath, err)
	}
	hdr.Name = it.relPath

	f, err := os.Open(it.absPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", it.absPath, err)
	}
	defer f.Close()

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", it.relPath, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", it.relPath, err)
	}
	return nil
}
