package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	rl := NewMemoryRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false, false} {
		ok, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}

	ok, _ := rl.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "window resets")
}

func TestMemoryRateLimiterCleanup(t *testing.T) {
	rl := NewMemoryRateLimiter(1, time.Hour)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	_, _ = rl.Allow(context.Background(), "a")

	now = now.Add(2 * time.Hour)
	rl.cleanup()
	assert.Empty(t, rl.attempts)

	rl.Stop()
	rl.Stop()
}

func TestNewRateLimiterWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(nil, 3, time.Minute)
	_, ok := rl.(*MemoryRateLimiter)
	assert.True(t, ok)
	rl.(*MemoryRateLimiter).Stop()
}
