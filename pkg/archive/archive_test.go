package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/NDilbone/Backupper/pkg/plog"
)

func TestMain(m *testing.M) {
	plog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func buildSnapshot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"root.txt":          "hello",
		"sub/nested.txt":    "nested content",
		"sub/deep/leaf.bin": strings.Repeat("z", 10000),
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// readEntries decompresses the archive and returns its entries by name.
func readEntries(t *testing.T, path string, format Format) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var raw io.Reader
	switch format {
	case FormatZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			t.Fatal(err)
		}
		defer zr.Close()
		raw = zr
	default:
		gr, err := pgzip.NewReader(f)
		if err != nil {
			t.Fatal(err)
		}
		defer gr.Close()
		raw = gr
	}

	entries := make(map[string]string)
	tr := tar.NewReader(raw)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		entries[hdr.Name] = string(data)
	}
	return entries
}

func TestCompress(t *testing.T) {
	for _, format := range []Format{FormatGzip, FormatZstd} {
		t.Run(string(format), func(t *testing.T) {
			src := buildSnapshot(t)
			archivePath := filepath.Join(t.TempDir(), "snap"+format.Ext())

			if err := Compress(context.Background(), src, archivePath, format); err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			entries := readEntries(t, archivePath, format)
			if len(entries) != 3 {
				t.Fatalf("entries = %d, want 3: %v", len(entries), entries)
			}
			if entries["root.txt"] != "hello" {
				t.Errorf("root.txt = %q", entries["root.txt"])
			}
			if entries["sub/nested.txt"] != "nested content" {
				t.Errorf("sub/nested.txt = %q", entries["sub/nested.txt"])
			}
			if len(entries["sub/deep/leaf.bin"]) != 10000 {
				t.Errorf("leaf.bin length = %d, want 10000", len(entries["sub/deep/leaf.bin"]))
			}
		})
	}
}

func TestCompressMissingSource(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "snap.tar.gz")

	err := Compress(context.Background(), filepath.Join(dir, "nope"), archivePath, FormatGzip)
	if err == nil {
		t.Fatal("expected error for missing source")
	}

	// No temp debris and no final archive.
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, e := range entries {
		t.Errorf("unexpected leftover file: %s", e.Name())
	}
}

func TestCompressCancelled(t *testing.T) {
	src := buildSnapshot(t)
	archivePath := filepath.Join(t.TempDir(), "snap.tar.gz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Compress(ctx, src, archivePath, FormatGzip); err == nil {
		t.Error("expected error for cancelled context")
	}
	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Error("archive must not exist after cancelled run")
	}
}

func TestFormatExt(t *testing.T) {
	if got := FormatGzip.Ext(); got != ".tar.gz" {
		t.Errorf("gzip ext = %q", got)
	}
	if got := FormatZstd.Ext(); got != ".tar.zst" {
		t.Errorf("zstd ext = %q", got)
	}
}
