package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffWait(t *testing.T) {
	b := Backoff{Multiplier: 2 * time.Second, Min: 4 * time.Second, Max: 30 * time.Second}
	assert.Equal(t, 4*time.Second, b.Wait(1))
	assert.Equal(t, 4*time.Second, b.Wait(2))
	assert.Equal(t, 8*time.Second, b.Wait(3))
	assert.Equal(t, 16*time.Second, b.Wait(4))
	assert.Equal(t, 30*time.Second, b.Wait(5))
	assert.Equal(t, 30*time.Second, b.Wait(20))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	var waits []time.Duration
	b := Backoff{Attempts: 3, Multiplier: time.Second, Min: 2 * time.Second, Max: 10 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}}

	calls := 0
	err := Retry(context.Background(), b, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, waits)
}

func TestRetryReturnsLastError(t *testing.T) {
	b := Backoff{Attempts: 3, Sleep: NoSleep}
	calls := 0
	sentinel := errors.New("still failing")
	err := Retry(context.Background(), b, nil, func() error {
		calls++
		return sentinel
	})
	assert.Equal(t, sentinel, err)
	assert.Equal(t, 3, calls)
}

func TestRetrySkipsNonRetryable(t *testing.T) {
	b := Backoff{Attempts: 3, Sleep: NoSleep}
	calls := 0
	permanent := errors.New("404")
	err := Retry(context.Background(), b, func(err error) bool { return false }, func() error {
		calls++
		return permanent
	})
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, Backoff{Attempts: 5, Sleep: NoSleep}, nil, func() error {
		calls++
		return errors.New("x")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))
}
