// Package cleaner enforces the snapshot retention policy by removing the
// oldest backup directories beyond the configured limit.
package cleaner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// snapshot pairs a backup directory with its modification time for sorting.
type snapshot struct {
	path    string
	name    string
	modTime int64
}

// Cleanup removes the oldest snapshot directories under root until at most
// maxBackups remain. Only direct subdirectories count as snapshots; loose
// files under root are left alone. deleted reports whether anything was
// removed, failed whether any removal went wrong. Failures are logged and
// the remaining candidates still get their turn.
func Cleanup(root string, maxBackups int) (deleted, failed bool) {
	if maxBackups < 1 {
		plog.Warn("Retention limit below 1, skipping cleanup", "maxBackups", maxBackups)
		return false, false
	}

	snapshots, err := listSnapshots(root)
	if err != nil {
		plog.Error("Failed to list backup directory", "path", root, "error", err)
		return false, true
	}

	excess := len(snapshots) - maxBackups
	if excess <= 0 {
		plog.Debug("Retention limit not reached", "snapshots", len(snapshots), "maxBackups", maxBackups)
		return false, false
	}

	plog.Info("Removing old backups", "count", excess, "maxBackups", maxBackups)
	for _, snap := range snapshots[:excess] {
		removedAny, failedAny := removeTree(snap.path)
		if removedAny {
			deleted = true
		}
		if failedAny {
			// The snapshot may be partially gone; both flags can be set
			// for the same run.
			failed = true
			plog.Error("Old backup not fully removed", "path", snap.path)
			continue
		}
		plog.Info("Removed old backup", "path", snap.path)
	}
	return deleted, failed
}

// listSnapshots returns root's subdirectories ordered oldest first.
// Equal modification times fall back to a name comparison so the order is
// deterministic.
func listSnapshots(root string) ([]snapshot, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	var snapshots []snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		snapshots = append(snapshots, snapshot{
			path:    filepath.Join(root, entry.Name()),
			name:    entry.Name(),
			modTime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].modTime != snapshots[j].modTime {
			return snapshots[i].modTime < snapshots[j].modTime
		}
		return strings.Compare(snapshots[i].name, snapshots[j].name) < 0
	})
	return snapshots, nil
}

// removeTree deletes dir bottom-up, children before parents. A path that
// cannot be removed is logged and skipped; the remaining siblings are
// still attempted, so one stubborn path never blocks the rest.
func removeTree(dir string) (removedAny, failedAny bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		plog.Warn("Failed to read directory during cleanup", "path", dir, "error", err)
		return false, true
	}
	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			childRemoved, childFailed := removeTree(child)
			removedAny = removedAny || childRemoved
			failedAny = failedAny || childFailed
			continue
		}
		if err := os.Remove(child); err != nil {
			plog.Warn("Failed to remove file during cleanup", "path", child, "error", err)
			failedAny = true
			continue
		}
		removedAny = true
	}
	if err := os.Remove(dir); err != nil {
		plog.Warn("Failed to remove directory during cleanup", "path", dir, "error", err)
		return removedAny, true
	}
	return true, failedAny
}
