package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomDelayBounds(t *testing.T) {
	d := NewRandomDelay(2*time.Second, 5*time.Second)
	for i := 0; i < 100; i++ {
		next := d.Next()
		assert.GreaterOrEqual(t, next, 2*time.Second)
		assert.LessOrEqual(t, next, 5*time.Second)
	}
}

func TestRandomDelayUsesSleeper(t *testing.T) {
	var slept time.Duration
	d := &RandomDelay{Min: time.Second, Max: time.Second, Sleep: func(ctx context.Context, dur time.Duration) error {
		slept = dur
		return nil
	}}
	assert.NoError(t, d.Delay(context.Background()))
	assert.Equal(t, time.Second, slept)
}

func TestNoDelay(t *testing.T) {
	start := time.Now()
	assert.NoError(t, NoDelay{}.Delay(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestCountingDelay(t *testing.T) {
	d := &CountingDelay{}
	_ = d.Delay(context.Background())
	_ = d.Delay(context.Background())
	assert.Equal(t, 2, d.Count)
}
