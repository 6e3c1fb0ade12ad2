package resolver

import (
	"context"
	"time"
)

// Backoff returns the pause before retry attempt (1-based).
type Backoff func(attempt int) time.Duration

// ExponentialBackoff grows from start by factor per attempt, capped at max.
// Zero values select 100ms, 1.5 and 2s.
func ExponentialBackoff(start time.Duration, factor float64, max time.Duration) Backoff {
	if start <= 0 {
		start = 100 * time.Millisecond
	}
	if factor < 1.1 {
		factor = 1.5
	}
	if max <= 0 {
		max = 2 * time.Second
	}
	return func(attempt int) time.Duration {
		d := float64(start)
		for i := 1; i < attempt && d < float64(max); i++ {
			d *= factor
		}
		if d > float64(max) {
			d = float64(max)
		}
		return time.Duration(d)
	}
}

// sleepCtx pauses for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
