package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed_FirstCallDoesNotWait(t *testing.T) {
	l := NewFixed(time.Hour)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFixed_SpacesCalls(t *testing.T) {
	l := NewFixed(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestFixed_HonorsCancellation(t *testing.T) {
	l := NewFixed(time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestJittered_StaysInRange(t *testing.T) {
	l := NewJittered(10*time.Millisecond, 20*time.Millisecond)
	for i := 0; i < 50; i++ {
		d := l.calculateDelay()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}

func TestNewRequestLimiter(t *testing.T) {
	_, ok := NewRequestLimiter(0, 1).(Unlimited)
	assert.True(t, ok)

	l := NewRequestLimiter(1000, 5)
	require.NoError(t, l.Wait(context.Background()))
}
