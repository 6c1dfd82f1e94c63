package cache

import (
	"context"
	"sync/atomic"

	"github.com/electwix/db-mapper/internal/logging"
)

// Logged counts lookups and hits for the wrapped cache and reports the
// running hit ratio at debug level on every Get.
type Logged struct {
	delegate Cache
	log      logging.Logger

	requests atomic.Int64
	hits     atomic.Int64
}

// NewLogged wraps delegate with hit-ratio accounting. A nil logger keeps
// the counters but drops the log output.
func NewLogged(delegate Cache, log logging.Logger) *Logged {
	if log == nil {
		log = logging.Nop()
	}
	return &Logged{delegate: delegate, log: log}
}

func (c *Logged) ID() string { return c.delegate.ID() }

func (c *Logged) Get(ctx context.Context, key *Key) (Value, bool, error) {
	c.requests.Add(1)
	v, ok, err := c.delegate.Get(ctx, key)
	if err != nil {
		return v, ok, err
	}
	if ok {
		c.hits.Add(1)
	}
	c.log.Debug("cache lookup", "cache", c.ID(), "hit", ok, "hitRatio", c.HitRatio())
	return v, ok, nil
}

func (c *Logged) Put(ctx context.Context, key *Key, value Value) error {
	return c.delegate.Put(ctx, key, value)
}

func (c *Logged) Remove(ctx context.Context, key *Key) (Value, bool, error) {
	return c.delegate.Remove(ctx, key)
}

func (c *Logged) Clear(ctx context.Context) error {
	return c.delegate.Clear(ctx)
}

func (c *Logged) Size() int { return c.delegate.Size() }

// Requests reports how many Gets the cache has served.
func (c *Logged) Requests() int64 { return c.requests.Load() }

// Hits reports how many Gets found a value.
func (c *Logged) Hits() int64 { return c.hits.Load() }

// HitRatio reports hits over requests, zero before any request.
func (c *Logged) HitRatio() float64 {
	req := c.requests.Load()
	if req == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(req)
}

var _ Cache = (*Logged)(nil)
