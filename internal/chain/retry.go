package chain

import (
	"context"
	"errors"
	"time"
)

const maxRetryDelay = 30 * time.Second

// WithRetry runs fn once and then up to maxRetries more times while it keeps
// failing. The wait starts at baseDelay and doubles, capped at maxRetryDelay.
// Context errors are returned at once.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	var err error
	for attempt, delay := 0, baseDelay; ; attempt, delay = attempt+1, min(2*delay, maxRetryDelay) {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || attempt >= maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
