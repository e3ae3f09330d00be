// Package budget keeps the crawler's view of the provider's hourly point budget.
//
// The only authoritative update is Observe, fed from the rateLimit block (or the
// rate limit headers) of a real response. Estimates never touch this state.
// A Budget is owned by the single crawl worker and is not safe for concurrent use.
package budget

import (
	"context"
	"time"
)

const (
	DefaultWatermark = 2
	DefaultScale     = 100
	DefaultNominal   = 5000
	DefaultGrace     = 15 * time.Second
	// used when the provider never told us when the window resets
	fallbackWindow = time.Hour
)

type Options struct {
	// Nominal is the provider's maximum points per window.
	Nominal int
	// Watermark is the reserve below which no request is attempted.
	Watermark int
	// Scale converts one point into estimator units.
	Scale int
	Grace time.Duration
}

type Budget struct {
	remaining int
	resetAt   time.Time
	opts      Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Budget {
	if opts.Nominal <= 0 {
		opts.Nominal = DefaultNominal
	}
	if opts.Watermark <= 0 {
		opts.Watermark = DefaultWatermark
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	return &Budget{
		remaining: opts.Nominal,
		opts:      opts,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// WithClock replaces the wall clock and the sleeper, for tests and dry runs.
func (b *Budget) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Budget {
	if now != nil {
		b.now = now
	}
	if sleep != nil {
		b.sleep = sleep
	}
	return b
}

func (b *Budget) Remaining() int     { return b.remaining }
func (b *Budget) ResetAt() time.Time { return b.resetAt }
func (b *Budget) Scale() int         { return b.opts.Scale }
func (b *Budget) Watermark() int     { return b.opts.Watermark }

// Spendable is the part of the remaining points above the watermark.
func (b *Budget) Spendable() int {
	if b.remaining <= b.opts.Watermark {
		return 0
	}
	return b.remaining - b.opts.Watermark
}

// CanAfford reports whether an operation estimated at estimatedCost units can
// run without pushing the remaining points under the watermark.
func (b *Budget) CanAfford(estimatedCost int) bool {
	if b.remaining <= b.opts.Watermark {
		return false
	}
	return estimatedCost <= b.Spendable()*b.opts.Scale
}

// Observe replaces the state with what the server reported.
func (b *Budget) Observe(remaining int, resetAt time.Time) {
	if remaining < 0 {
		remaining = 0
	}
	b.remaining = remaining
	if !resetAt.IsZero() {
		b.resetAt = resetAt
	}
}

// Until returns how long SleepUntilReset would block right now.
func (b *Budget) Until() time.Duration {
	resetAt := b.resetAt
	if resetAt.IsZero() {
		resetAt = b.now().Add(fallbackWindow)
	}
	d := resetAt.Add(b.opts.Grace).Sub(b.now())
	if d < 0 {
		return 0
	}
	return d
}

// SleepUntilReset blocks until reset_at plus the grace period, then assumes the
// provider refilled the budget.
func (b *Budget) SleepUntilReset(ctx context.Context) error {
	if d := b.Until(); d > 0 {
		if err := b.sleep(ctx, d); err != nil {
			return err
		}
	}
	b.remaining = b.opts.Nominal
	b.resetAt = time.Time{}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
