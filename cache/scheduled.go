package cache

import (
	"context"
	"time"
)

// DefaultFlushInterval is the clear period used when a Scheduled decorator
// is built without one.
const DefaultFlushInterval = time.Hour

// Scheduled clears the wrapped cache once the flush interval has elapsed.
// There is no background timer: staleness is checked on the way into each
// operation, so an idle cache flushes on its next use.
type Scheduled struct {
	delegate  Cache
	interval  time.Duration
	lastClear time.Time
}

// NewScheduled wraps delegate with interval-based clearing. A non-positive
// interval falls back to DefaultFlushInterval.
func NewScheduled(delegate Cache, interval time.Duration) *Scheduled {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Scheduled{delegate: delegate, interval: interval, lastClear: time.Now()}
}

func (c *Scheduled) ID() string { return c.delegate.ID() }

func (c *Scheduled) Get(ctx context.Context, key *Key) (Value, bool, error) {
	if err := c.clearWhenStale(ctx); err != nil {
		return Value{}, false, err
	}
	return c.delegate.Get(ctx, key)
}

func (c *Scheduled) Put(ctx context.Context, key *Key, value Value) error {
	if err := c.clearWhenStale(ctx); err != nil {
		return err
	}
	return c.delegate.Put(ctx, key, value)
}

func (c *Scheduled) Remove(ctx context.Context, key *Key) (Value, bool, error) {
	if err := c.clearWhenStale(ctx); err != nil {
		return Value{}, false, err
	}
	return c.delegate.Remove(ctx, key)
}

func (c *Scheduled) Clear(ctx context.Context) error {
	c.lastClear = time.Now()
	return c.delegate.Clear(ctx)
}

func (c *Scheduled) Size() int { return c.delegate.Size() }

func (c *Scheduled) clearWhenStale(ctx context.Context) error {
	if time.Since(c.lastClear) <= c.interval {
		return nil
	}
	return c.Clear(ctx)
}

var _ Cache = (*Scheduled)(nil)
