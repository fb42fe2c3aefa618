package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	t.Run("Identical files match", func(t *testing.T) {
		a := writeFile(t, dir, "a.txt", "identical content")
		b := writeFile(t, dir, "b.txt", "identical content")

		if !Verify(a, b) {
			t.Error("expected identical files to verify")
		}
	})

	t.Run("Different content fails", func(t *testing.T) {
		a := writeFile(t, dir, "c.txt", "content one")
		b := writeFile(t, dir, "d.txt", "content two")

		if Verify(a, b) {
			t.Error("expected differing files to fail verification")
		}
	})

	t.Run("Directories always verify", func(t *testing.T) {
		sub1 := filepath.Join(dir, "sub1")
		sub2 := filepath.Join(dir, "sub2")
		for _, d := range []string{sub1, sub2} {
			if err := os.Mkdir(d, 0755); err != nil {
				t.Fatal(err)
			}
		}
		writeFile(t, sub1, "x.txt", "only in sub1")

		if !Verify(sub1, sub2) {
			t.Error("expected directories to verify regardless of contents")
		}
	})

	t.Run("Directory against file verifies", func(t *testing.T) {
		f := writeFile(t, dir, "e.txt", "a file")
		if !Verify(dir, f) {
			t.Error("expected directory on either side to short-circuit to true")
		}
	})

	t.Run("Missing file fails", func(t *testing.T) {
		a := writeFile(t, dir, "f.txt", "exists")
		if Verify(a, filepath.Join(dir, "does-not-exist")) {
			t.Error("expected missing copy to fail verification")
		}
	})

	t.Run("Large file spanning multiple chunks", func(t *testing.T) {
		big := make([]byte, hashBufferSize*3+17)
		for i := range big {
			big[i] = byte(i % 251)
		}
		a := filepath.Join(dir, "big-a.bin")
		b := filepath.Join(dir, "big-b.bin")
		for _, p := range []string{a, b} {
			if err := os.WriteFile(p, big, 0644); err != nil {
				t.Fatal(err)
			}
		}

		if !Verify(a, b) {
			t.Error("expected identical large files to verify")
		}
	})
}
