package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_SpacesCalls(t *testing.T) {
	p := NewPacer(50) // 20ms between calls

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	// First call is immediate, the next two are paced.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPacer_DisabledWhenRateNonPositive(t *testing.T) {
	p := NewPacer(0)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_BackoffBlocksAllow(t *testing.T) {
	p := NewPacer(1000)
	assert.True(t, p.Allow())

	p.RecordRateLimitError(30)
	assert.False(t, p.Allow())
}

func TestPacer_TokenWindowBlocksWhenExhausted(t *testing.T) {
	p := NewPacer(0, WithTokensPerMinute(600))

	// The full window is available up front.
	require.NoError(t, p.WaitTokens(context.Background(), 600))

	// With the window drained, more tokens cannot be served within the
	// deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, p.WaitTokens(ctx, 10))
}

func TestPacer_TokenWindowClampsOversizedRequests(t *testing.T) {
	p := NewPacer(0, WithTokensPerMinute(600))

	// A request larger than the window is clamped, not stuck forever.
	require.NoError(t, p.WaitTokens(context.Background(), 10_000))
}

func TestPacer_WaitTokensWithoutWindow(t *testing.T) {
	p := NewPacer(0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, p.WaitTokens(context.Background(), 1_000_000))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_WaitHonoursContext(t *testing.T) {
	p := NewPacer(1000)
	p.RecordRateLimitError(60)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
