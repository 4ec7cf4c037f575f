package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

var retryBase = time.Second

// Retry runs fn up to attempts times, pausing 1s, 2s, 4s... between tries.
// Each failed attempt is logged as a warning.
func Retry(ctx context.Context, attempts int, what string, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	wait := retryBase
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("browser call failed", "op", what, "attempt", i, "of", attempts, "err", err)
		if i == attempts {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, attempts, err)
}
