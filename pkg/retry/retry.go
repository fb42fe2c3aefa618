// Package retry executes an operation with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// Handler holds an immutable retry policy. A single Handler is shared
// read-only across all workers of an engine run.
type Handler struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt; each subsequent
	// wait doubles it.
	BaseDelay time.Duration
}

// NewHandler creates a Handler, clamping MaxAttempts to at least one attempt.
func NewHandler(maxAttempts int, baseDelay time.Duration) *Handler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Handler{MaxAttempts: maxAttempts, BaseDelay: baseDelay}
}

// Do runs op up to MaxAttempts times and reports whether it eventually
// succeeded. After a failed attempt it sleeps BaseDelay * 2^(attempt-1),
// except after the final attempt, which fails immediately. The backoff wait
// is the only suspension point: if ctx is cancelled during it, the loop
// aborts at once and reports failure without further attempts.
//
// op signals failure by returning a non-nil error. Expected conditions such
// as a checksum mismatch are ordinary retryable errors here, not panics.
func (h *Handler) Do(ctx context.Context, description string, op func() error) bool {
	for attempt := 1; attempt <= h.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			plog.Debug("Operation succeeded", "op", description, "attempt", attempt)
			return true
		}

		plog.Warn("Attempt failed", "op", description, "attempt", attempt, "maxAttempts", h.MaxAttempts, "error", err)
		if attempt == h.MaxAttempts {
			plog.Error("Giving up after final attempt", "op", description, "attempts", h.MaxAttempts)
			return false
		}

		delay := h.BaseDelay << (attempt - 1)
		plog.Debug("Backing off before retry", "op", description, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			plog.Warn("Retry wait cancelled", "op", description, "error", ctx.Err())
			return false
		case <-timer.C:
		}
	}
	return false
}
