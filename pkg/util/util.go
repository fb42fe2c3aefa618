package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PermUserWrite is the user-write permission bit (0200).
const PermUserWrite os.FileMode = 0200

// WithUserWritePermission ensures that any directory/file permission has the
// owner-write bit (0200) set. This prevents the backup user from being locked
// out of the destination on subsequent runs.
func WithUserWritePermission(basePerm os.FileMode) os.FileMode {
	return basePerm | PermUserWrite
}

// ExpandPath expands the tilde (~) prefix in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil // No tilde, return as-is.
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}

	return filepath.Join(home, path[1:]), nil
}

// FormatDuration renders a duration as a human-readable string with minutes,
// seconds and, for sub-second durations, milliseconds. Zero renders as
// "0 seconds".
func FormatDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	minutes := seconds / 60
	remainingSeconds := seconds % 60
	millis := d.Milliseconds() % 1000

	var parts []string
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, plural(minutes, "minute")))
	}
	if remainingSeconds > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", remainingSeconds, plural(remainingSeconds, "second")))
	}
	// Milliseconds are only interesting when the run finished in under a second.
	if millis > 0 && minutes == 0 && remainingSeconds == 0 {
		parts = append(parts, fmt.Sprintf("%d %s", millis, plural(millis, "millisecond")))
	}

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
