// Package engine orchestrates a full backup run: preflight, locking,
// retention, the concurrent copy, optional compression and the final
// notification.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/NDilbone/Backupper/pkg/archive"
	"github.com/NDilbone/Backupper/pkg/cleaner"
	"github.com/NDilbone/Backupper/pkg/config"
	"github.com/NDilbone/Backupper/pkg/copier"
	"github.com/NDilbone/Backupper/pkg/lockfile"
	"github.com/NDilbone/Backupper/pkg/notify"
	"github.com/NDilbone/Backupper/pkg/plog"
	"github.com/NDilbone/Backupper/pkg/preflight"
	"github.com/NDilbone/Backupper/pkg/util"
)

// Result is what a single run produced, for callers that want more than
// the error.
type Result struct {
	SnapshotDir string
	ArchivePath string
	Report      copier.Report
}

// Runner executes backup runs for one configuration.
type Runner struct {
	cfg      config.Config
	notifier *notify.Notifier
}

func NewRunner(cfg config.Config) *Runner {
	return &Runner{
		cfg:      cfg,
		notifier: notify.New(cfg.Notify.WebhookURL, cfg.Notify.UserID),
	}
}

// Execute performs one complete backup run. Individual file failures are
// reported through the Result and notification, not as err; err means the
// run could not produce a snapshot at all.
func (r *Runner) Execute(ctx context.Context) (Result, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Preflight before touching anything.
	if err := preflight.CheckSource(r.cfg.SourceDir); err != nil {
		return Result{}, fmt.Errorf("preflight failed: %w", err)
	}
	if err := preflight.CheckNesting(r.cfg.SourceDir, r.cfg.DestinationDir); err != nil {
		return Result{}, fmt.Errorf("preflight failed: %w", err)
	}
	if err := preflight.CheckDestination(r.cfg.DestinationDir); err != nil {
		return Result{}, fmt.Errorf("preflight failed: %w", err)
	}
	preflight.CheckFreeSpace(r.cfg.SourceDir, r.cfg.DestinationDir)

	lock, err := lockfile.Acquire(r.cfg.DestinationDir)
	if err != nil {
		return Result{}, err
	}
	defer lock.Release()

	// Retention runs before the copy so the new snapshot has room.
	if _, failed := cleaner.Cleanup(r.cfg.DestinationDir, r.cfg.MaxBackupsToKeep); failed {
		plog.Warn("Retention cleanup had failures, continuing with backup")
	}

	snapshotDir := r.cfg.SnapshotDir(start)
	eng := copier.NewEngine(copier.Options{
		Workers:    r.cfg.Workers,
		MaxRetries: r.cfg.MaxRetries,
		RetryDelay: r.cfg.RetryDelay(),
		Exclusions: r.cfg.ExclusionPatterns,
	})

	report, err := eng.Run(ctx, r.cfg.SourceDir, snapshotDir)
	if err != nil {
		return Result{SnapshotDir: snapshotDir, Report: report}, fmt.Errorf("backup run failed: %w", err)
	}

	result := Result{SnapshotDir: snapshotDir, Report: report}

	// Compress once, fail forward: a failed compression leaves the plain
	// snapshot in place and does not fail the run.
	if r.cfg.Compression.Enabled {
		format := archive.FormatGzip
		if r.cfg.Compression.Format == "zstd" {
			format = archive.FormatZstd
		}
		archivePath := snapshotDir + format.Ext()
		if err := archive.Compress(ctx, snapshotDir, archivePath, format); err != nil {
			plog.Warn("Compression failed, keeping uncompressed snapshot", "error", err)
		} else {
			result.ArchivePath = archivePath
			if err := os.RemoveAll(snapshotDir); err != nil {
				plog.Warn("Failed to remove snapshot after compression", "path", snapshotDir, "error", err)
			}
		}
	}

	duration := time.Since(start)
	plog.Info("Backup complete",
		"snapshot", snapshotDir,
		"files", report.FilesCopied,
		"failed", len(report.Failed),
		"duration", util.FormatDuration(duration),
	)

	r.notifier.Send(ctx, notify.Summary{
		SourceDir:   r.cfg.SourceDir,
		SnapshotDir: snapshotDir,
		Duration:    duration,
		FilesCopied: report.FilesCopied,
		Failed:      report.Failed,
		Incomplete:  report.Incomplete,
	})

	return result, nil
}
