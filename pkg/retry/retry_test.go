package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo(t *testing.T) {
	t.Run("Succeeds first try", func(t *testing.T) {
		h := NewHandler(3, time.Millisecond)
		calls := 0

		ok := h.Do(context.Background(), "noop", func() error {
			calls++
			return nil
		})

		if !ok {
			t.Error("expected success")
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("Retries until success", func(t *testing.T) {
		h := NewHandler(3, time.Millisecond)
		calls := 0

		ok := h.Do(context.Background(), "flaky", func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		if !ok {
			t.Error("expected eventual success")
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("Exhausts exactly MaxAttempts", func(t *testing.T) {
		h := NewHandler(4, time.Millisecond)
		calls := 0

		ok := h.Do(context.Background(), "always fails", func() error {
			calls++
			return errors.New("permanent")
		})

		if ok {
			t.Error("expected failure after exhausting retries")
		}
		if calls != 4 {
			t.Errorf("expected exactly 4 attempts, got %d", calls)
		}
	})

	t.Run("Backoff doubles between attempts", func(t *testing.T) {
		base := 20 * time.Millisecond
		h := NewHandler(3, base)

		start := time.Now()
		h.Do(context.Background(), "timed", func() error {
			return errors.New("fail")
		})
		elapsed := time.Since(start)

		// Delays are base and 2*base; no sleep after the final attempt.
		if want := 3 * base; elapsed < want {
			t.Errorf("expected at least %v of backoff, got %v", want, elapsed)
		}
		if limit := 10 * base; elapsed > limit {
			t.Errorf("backoff took suspiciously long: %v", elapsed)
		}
	})

	t.Run("Cancellation aborts backoff wait", func(t *testing.T) {
		h := NewHandler(5, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		ok := h.Do(ctx, "cancelled", func() error {
			calls++
			return errors.New("fail")
		})

		if ok {
			t.Error("expected failure on cancellation")
		}
		if calls != 1 {
			t.Errorf("expected no further attempts after cancellation, got %d calls", calls)
		}
		if time.Since(start) > time.Second {
			t.Error("cancellation did not interrupt the backoff wait")
		}
	})

	t.Run("Zero attempts clamps to one", func(t *testing.T) {
		h := NewHandler(0, time.Millisecond)
		calls := 0

		h.Do(context.Background(), "clamped", func() error {
			calls++
			return errors.New("fail")
		})

		if calls != 1 {
			t.Errorf("expected a single attempt, got %d", calls)
		}
	})
}
