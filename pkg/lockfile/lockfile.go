// Package lockfile guards the destination directory against concurrent
// backup runs with an atomically created lock file.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// LockFileName is created in the destination root for the duration of a
// run. The '~' prefix marks it as temporary.
const LockFileName = ".~backupper.lock"

// staleTimeout is how old a lock may be before another process is allowed
// to take it over. Backup runs longer than this keep their lock only if
// the owning process is still alive on the same host.
var staleTimeout = 24 * time.Hour

// LockContent is the JSON payload written into the lock file.
type LockContent struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// ErrLockActive is returned when another run holds the lock.
type ErrLockActive struct {
	PID       int
	Hostname  string
	TimeSince time.Duration
}

func (e *ErrLockActive) Error() string {
	return fmt.Sprintf("another backup is running: PID %d on host %q, started %s ago",
		e.PID, e.Hostname, e.TimeSince.Truncate(time.Second))
}

// Lock represents a held lock file.
type Lock struct {
	path string
	held bool
}

// Acquire creates the lock file in dirPath. A stale lock, or one held by a
// dead process on this host, is removed and acquisition retried once.
func Acquire(dirPath string) (*Lock, error) {
	path := filepath.Join(dirPath, LockFileName)

	for attempt := 0; attempt < 2; attempt++ {
		lock, err := tryAcquire(path)
		if err == nil {
			return lock, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		content, readErr := readLock(path)
		if readErr != nil {
			// Unreadable lock files are treated as stale debris.
			plog.Warn("Removing corrupt lock file", "path", path, "error", readErr)
			_ = os.Remove(path)
			continue
		}

		age := time.Since(content.AcquiredAt)
		if age > staleTimeout || ownerDead(content) {
			plog.Warn("Taking over stale lock", "pid", content.PID, "host", content.Hostname, "age", age.Truncate(time.Second))
			_ = os.Remove(path)
			continue
		}

		return nil, &ErrLockActive{PID: content.PID, Hostname: content.Hostname, TimeSince: age}
	}
	return nil, errors.New("failed to acquire lock after stale takeover")
}

// tryAcquire attempts the atomic O_EXCL create.
func tryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	content := LockContent{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(content); err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write lock content: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	plog.Debug("Lock acquired", "path", path)
	return &Lock{path: path, held: true}, nil
}

func readLock(path string) (LockContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LockContent{}, err
	}
	var content LockContent
	if err := json.Unmarshal(data, &content); err != nil {
		return LockContent{}, fmt.Errorf("invalid lock content: %w", err)
	}
	if content.PID == 0 {
		return LockContent{}, errors.New("lock content missing pid")
	}
	return content, nil
}

// ownerDead reports whether the lock owner is a process on this host that
// no longer exists. Locks from other hosts are never declared dead here.
func ownerDead(content LockContent) bool {
	hostname, err := os.Hostname()
	if err != nil || content.Hostname != hostname {
		return false
	}
	return processDead(content.PID)
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil || !l.held {
		return
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		plog.Warn("Failed to remove lock file", "path", l.path, "error", err)
		return
	}
	plog.Debug("Lock released", "path", l.path)
}
