// Package limiter provides the two layers of API throttling used by the
// pipeline: a Pacer that spaces individual calls out in time, and a
// Budget that enforces request-count and daily-cost ceilings across the
// whole process lifetime.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outgoing API calls using a token bucket with a burst of
// one, so successive calls are separated by at least 1/rate seconds.
// It also honours a backoff window after a 429 response, and can carry
// an additional token-weighted window for providers that meter tokens
// per minute alongside requests.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	tokens  *rate.Limiter
	retryAt time.Time
}

// PacerOption configures a Pacer.
type PacerOption func(*Pacer)

// WithTokensPerMinute adds a token-per-minute window. WaitTokens blocks
// until the requested token amount fits in the window. Non-positive
// values leave token pacing disabled.
func WithTokensPerMinute(tpm int) PacerOption {
	return func(p *Pacer) {
		if tpm > 0 {
			p.tokens = rate.NewLimiter(rate.Limit(float64(tpm)/60.0), tpm)
		}
	}
}

// NewPacer creates a pacer allowing callsPerSecond sustained calls.
// A non-positive rate disables call pacing.
func NewPacer(callsPerSecond float64, opts ...PacerOption) *Pacer {
	p := &Pacer{}
	if callsPerSecond <= 0 {
		p.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		p.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until the next call may proceed, or ctx is done. Any
// backoff window set by RecordRateLimitError is served first.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return p.limiter.Wait(ctx)
}

// WaitTokens blocks like Wait and additionally reserves the given token
// amount against the token-per-minute window when one is configured.
// Amounts above the window capacity are clamped to it, so a single
// oversized request cannot block forever.
func (p *Pacer) WaitTokens(ctx context.Context, tokens int) error {
	if err := p.Wait(ctx); err != nil {
		return err
	}
	if p.tokens == nil || tokens <= 0 {
		return nil
	}
	if burst := p.tokens.Burst(); tokens > burst {
		tokens = burst
	}
	return p.tokens.WaitN(ctx, tokens)
}

// RecordRateLimitError sets a backoff window after the remote API
// returned 429. A non-positive Retry-After falls back to 60 seconds.
func (p *Pacer) RecordRateLimitError(retryAfterSeconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if retryAfterSeconds <= 0 {
		retryAfterSeconds = 60
	}
	p.retryAt = time.Now().Add(time.Duration(retryAfterSeconds) * time.Second)
}

// Allow reports whether a call may proceed right now without blocking.
func (p *Pacer) Allow() bool {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return p.limiter.Allow()
}
