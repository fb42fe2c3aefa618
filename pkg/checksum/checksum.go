// Package checksum verifies that a copied file is byte-for-byte identical to
// its source by comparing SHA-256 digests.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// hashBufferSize is the chunk size used when streaming a file through the digest.
const hashBufferSize = 8 * 1024

// Verify compares the SHA-256 digests of the original and the copy.
// Directories are never content-compared: if either path is a directory the
// result is true. Any I/O error while digesting is treated as a verification
// failure; this function never propagates an error to its caller.
func Verify(original, copy string) bool {
	origInfo, err := os.Stat(original)
	if err != nil {
		plog.Error("Failed to stat file for verification", "path", original, "error", err)
		return false
	}
	copyInfo, err := os.Stat(copy)
	if err != nil {
		plog.Error("Failed to stat file for verification", "path", copy, "error", err)
		return false
	}
	if origInfo.IsDir() || copyInfo.IsDir() {
		plog.Debug("Skipping checksum verification for directory", "original", original, "copy", copy)
		return true
	}

	originalSum, err := fileSHA256(original)
	if err != nil {
		plog.Error("Failed to compute checksum", "path", original, "error", err)
		return false
	}
	copySum, err := fileSHA256(copy)
	if err != nil {
		plog.Error("Failed to compute checksum", "path", copy, "error", err)
		return false
	}

	if originalSum != copySum {
		plog.Warn("Checksum mismatch", "original", originalSum, "copy", copySum, "path", copy)
		return false
	}
	plog.Debug("Checksum verified", "path", copy)
	return true
}

// fileSHA256 streams a file through SHA-256 and returns the hex-encoded digest.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digest := sha256.New()
	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
