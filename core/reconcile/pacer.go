package reconcile

import (
	"context"
	"math/rand/v2"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer spaces out requests to stay below the catalog's abuse detection.
type Pacer struct {
	ItemMin time.Duration
	ItemMax time.Duration
	Page    time.Duration

	sleeper Sleeper
	rnd     func(n int64) int64
}

// NewPacer builds a pacer with a real timer.
func NewPacer(itemMin, itemMax, page time.Duration) *Pacer {
	if itemMax < itemMin {
		itemMax = itemMin
	}
	return &Pacer{
		ItemMin: itemMin,
		ItemMax: itemMax,
		Page:    page,
		sleeper: timerSleeper{},
		rnd:     rand.Int64N,
	}
}

// WithSleeper replaces the sleeper, mostly for tests.
func (p *Pacer) WithSleeper(s Sleeper) *Pacer {
	p.sleeper = s
	return p
}

// ItemDelay picks a delay uniformly from [ItemMin, ItemMax].
func (p *Pacer) ItemDelay() time.Duration {
	span := int64(p.ItemMax - p.ItemMin)
	if span <= 0 {
		return p.ItemMin
	}
	return p.ItemMin + time.Duration(p.rnd(span+1))
}

// BeforeItem sleeps the randomized per-document delay.
func (p *Pacer) BeforeItem(ctx context.Context) error {
	return p.sleeper.Sleep(ctx, p.ItemDelay())
}

// BetweenPages sleeps the fixed per-page delay.
func (p *Pacer) BetweenPages(ctx context.Context) error {
	return p.sleeper.Sleep(ctx, p.Page)
}
