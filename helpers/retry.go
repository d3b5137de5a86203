package helpers

import (
	"context"
	"time"
)

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep returns immediately. Used by tests.
func NoSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// Backoff describes a bounded exponential retry policy. The wait before
// attempt n+1 is Multiplier * 2^(n-1), clamped to [Min, Max].
type Backoff struct {
	Attempts   int
	Multiplier time.Duration
	Min        time.Duration
	Max        time.Duration
	Sleep      Sleeper
}

// Wait returns the pause after the given failed attempt (1-based)
func (b Backoff) Wait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := b.Multiplier
	for i := 1; i < attempt && wait < b.Max; i++ {
		wait *= 2
	}
	if wait < b.Min {
		wait = b.Min
	}
	if b.Max > 0 && wait > b.Max {
		wait = b.Max
	}
	return wait
}

// Retry calls fn until it succeeds, the attempts run out or retryable
// rejects the error. The last error is returned unwrapped. A nil retryable
// retries every error.
func Retry(ctx context.Context, b Backoff, retryable func(error) bool, fn func() error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if serr := sleep(ctx, b.Wait(attempt)); serr != nil {
			return err
		}
	}
	return err
}
