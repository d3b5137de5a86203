package helpers

import (
	"context"
	mathrand "math/rand/v2"
	"time"
)

// Delayer inserts the politeness pause between two requests to one source
type Delayer interface {
	Delay(ctx context.Context) error
}

// RandomDelay waits a uniformly random duration in [Min, Max]
type RandomDelay struct {
	Min   time.Duration
	Max   time.Duration
	Sleep Sleeper
	// OnDelay is called with the chosen duration before sleeping
	OnDelay func(time.Duration)
}

// NewRandomDelay creates a RandomDelay that really sleeps
func NewRandomDelay(min, max time.Duration) *RandomDelay {
	return &RandomDelay{Min: min, Max: max, Sleep: SleepContext}
}

// Next picks the next pause
func (d *RandomDelay) Next() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(mathrand.Int64N(int64(d.Max-d.Min)+1))
}

// Delay sleeps for Next()
func (d *RandomDelay) Delay(ctx context.Context) error {
	wait := d.Next()
	if d.OnDelay != nil {
		d.OnDelay(wait)
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, wait)
}

// NoDelay skips the politeness pause
type NoDelay struct{}

// Delay returns immediately
func (NoDelay) Delay(ctx context.Context) error {
	return ctx.Err()
}

// CountingDelay records how many pauses were requested. Used by tests.
type CountingDelay struct {
	Count int
}

// Delay counts and returns immediately
func (d *CountingDelay) Delay(ctx context.Context) error {
	d.Count++
	return ctx.Err()
}
