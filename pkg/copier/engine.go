package copier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NDilbone/Backupper/pkg/plog"
	"github.com/NDilbone/Backupper/pkg/retry"
)

// DefaultDrainTimeout bounds how long the engine waits for in-flight
// workers after the walk finishes. A wedged worker must not hold the whole
// run hostage, so on expiry the engine reports and moves on.
const DefaultDrainTimeout = 60 * time.Second

// Report summarizes a completed copy run.
type Report struct {
	Duration    time.Duration
	FilesCopied int64
	BytesCopied int64
	// Failed lists the source paths that exhausted their retries.
	Failed []string
	// Incomplete is set when the worker pool did not drain within the
	// timeout, meaning some tasks may still have been in flight when the
	// report was produced.
	Incomplete bool
}

// Options configures a copy engine.
type Options struct {
	Workers      int
	MaxRetries   int
	RetryDelay   time.Duration
	Exclusions   []string
	DrainTimeout time.Duration
}

// Engine runs the producer/consumer copy pipeline: one walker goroutine
// producing tasks, a fixed pool of workers consuming them. Each Run owns
// its own failure set, so results from one run never bleed into the next.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	return &Engine{opts: opts}
}

// Run copies the tree rooted at src into dst and returns the run report.
// Individual file failures are collected, not fatal; only a walk error,
// like an uncreatable destination directory, is returned as err.
func (e *Engine) Run(ctx context.Context, src, dst string) (Report, error) {
	start := time.Now()

	failed := NewFailureSet()
	retrier := retry.NewHandler(e.opts.MaxRetries, e.opts.RetryDelay)
	fc := NewFileCopier(retrier, failed)
	exclusions := NewExclusionList(e.opts.Exclusions)

	var filesCopied, bytesCopied atomic.Int64
	tasks := make(chan Task, e.opts.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if fc.Copy(ctx, task.Src, task.Dst, task.Info) {
					filesCopied.Add(1)
					bytesCopied.Add(task.Info.Size())
				}
			}
		}()
	}

	plog.Info("Starting copy", "source", src, "destination", dst, "workers", e.opts.Workers)

	processor := NewDirectoryProcessor(exclusions, func(t Task) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case tasks <- t:
			return true
		case <-ctx.Done():
			return false
		}
	})
	walkErr := processor.Process(src, dst)
	close(tasks)

	report := Report{}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.opts.DrainTimeout):
		plog.Warn("Worker pool did not drain in time, proceeding with partial results",
			"timeout", e.opts.DrainTimeout)
		report.Incomplete = true
	}

	report.Duration = time.Since(start)
	report.FilesCopied = filesCopied.Load()
	report.BytesCopied = bytesCopied.Load()
	report.Failed = failed.Paths()

	if len(report.Failed) > 0 {
		plog.Warn("Copy finished with failures",
			"files", report.FilesCopied, "failed", len(report.Failed), "duration", report.Duration)
	} else {
		plog.Info("Copy finished",
			"files", report.FilesCopied, "bytes", report.BytesCopied, "duration", report.Duration)
	}
	return report, walkErr
}
