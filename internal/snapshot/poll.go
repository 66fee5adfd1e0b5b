package snapshot

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout is returned when every poll attempt came back empty.
var ErrPollTimeout = errors.New("timed out waiting for result")

// Poll calls check up to attempts times, waiting interval before each call,
// and returns the first value check reports ready. It always terminates.
func Poll[T any](ctx context.Context, interval time.Duration, attempts int, check func() (T, bool)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}
		if v, ok := check(); ok {
			return v, nil
		}
	}
	return zero, ErrPollTimeout
}
