package fetch

import (
	"context"
	"strings"
	"sync"
	"time"
)

// LimitPolicy sets the minimum spacing between outbound requests.
// URLs containing ExtendedPattern get the longer Extended spacing;
// everything else gets Standard. Zero durations disable the delay,
// which keeps tests instant.
type LimitPolicy struct {
	Standard        time.Duration
	Extended        time.Duration
	ExtendedPattern string
}

// DefaultLimitPolicy matches the pacing the source tolerates: half a
// second between ordinary requests, two seconds before hitting the
// expensive detail-page endpoints.
func DefaultLimitPolicy() LimitPolicy {
	return LimitPolicy{
		Standard:        500 * time.Millisecond,
		Extended:        2 * time.Second,
		ExtendedPattern: "/node/",
	}
}

// Limiter enforces per-tier minimum spacing between requests. The
// next-allowed times are tracked under one mutex, so the spacing holds
// across goroutines rather than per caller.
type Limiter struct {
	policy LimitPolicy

	mu           sync.Mutex
	nextStandard time.Time
	nextExtended time.Time
}

func NewLimiter(policy LimitPolicy) *Limiter {
	return &Limiter{policy: policy}
}

// Wait suspends the caller until the URL's tier allows another request,
// reserving the slot. It only fails when the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, url string) error {
	delay := l.reserve(url, time.Now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reserve returns how long the caller must wait and books the tier's
// next slot, so concurrent callers queue up instead of bursting.
func (l *Limiter) reserve(url string, now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := &l.nextStandard
	spacing := l.policy.Standard
	if l.policy.ExtendedPattern != "" && strings.Contains(url, l.policy.ExtendedPattern) {
		next = &l.nextExtended
		spacing = l.policy.Extended
	}

	wait := next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	*next = now.Add(wait + spacing)

	return wait
}
