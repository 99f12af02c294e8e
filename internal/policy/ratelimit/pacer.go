// Package ratelimit spaces outbound backend calls with a token bucket so
// sequential LLM and scrape work keeps a fixed minimum interval between calls.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
)

// Pacer hands out call slots no closer together than its interval. The
// first slot is granted immediately.
type Pacer struct {
	lane     string
	interval time.Duration
	limiter  *rate.Limiter
}

// NewPacer creates a Pacer for the named lane. A non-positive interval
// disables pacing.
func NewPacer(lane string, interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		lane:     lane,
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next slot is available or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacer %s wait: %w", p.lane, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObservePacerWait(p.lane, waited)
	}
	return nil
}

// Sequential runs fn over items one at a time, in order, taking a pacer slot
// before each call. It stops at the first pacer error (context cancellation)
// and returns the results gathered so far.
func Sequential[T, R any](ctx context.Context, p *Pacer, items []T, fn func(ctx context.Context, item T) R) ([]R, error) {
	results := make([]R, 0, len(items))
	for _, item := range items {
		if err := p.Wait(ctx); err != nil {
			return results, err
		}
		results = append(results, fn(ctx, item))
	}
	return results, nil
}
