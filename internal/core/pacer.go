package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRowDelay is the pause after each product update.
const DefaultRowDelay = 100 * time.Millisecond

// Pacer throttles outbound calls. Wait is called once after every product,
// whatever its outcome, and returns early with ctx.Err() when ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay sleeps for a constant duration.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error { return ctx.Err() }

// TokenBucketPacer allows one call per interval with a burst of one.
// Unlike FixedDelay, time spent in the call itself counts toward the interval.
type TokenBucketPacer struct {
	limiter *rate.Limiter
}

// NewTokenBucketPacer returns a pacer that admits one call per interval.
func NewTokenBucketPacer(interval time.Duration) *TokenBucketPacer {
	if interval <= 0 {
		interval = DefaultRowDelay
	}
	return &TokenBucketPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *TokenBucketPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Throttle modes accepted by NewPacer.
const (
	ThrottleFixed       = "fixed"
	ThrottleTokenBucket = "token_bucket"
	ThrottleNone        = "none"
)

// NewPacer builds the pacer for a throttle mode.
func NewPacer(mode string, delay time.Duration) (Pacer, error) {
	switch strings.ToLower(mode) {
	case "", ThrottleFixed:
		return FixedDelay(delay), nil
	case ThrottleTokenBucket:
		return NewTokenBucketPacer(delay), nil
	case ThrottleNone:
		return NoDelay{}, nil
	default:
		return nil, fmt.Errorf("unknown throttle mode %q", mode)
	}
}
