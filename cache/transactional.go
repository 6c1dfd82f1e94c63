package cache

import (
	"context"

	"github.com/electwix/db-mapper/internal/logging"
)

// Transactional buffers writes to a shared cache until the surrounding
// transaction commits, so other sessions never observe uncommitted rows.
// It also records every miss: on commit, misses that gained no staged
// write are published as null markers (confirming the miss and releasing
// any blocking gate held since the lookup), and on rollback the missed
// keys are removed from the shared cache, which likewise releases gates.
type Transactional struct {
	delegate     Cache
	log          logging.Logger
	clearPending bool
	pendingPuts  *keyMap[Value]
	missed       *keyMap[struct{}]
}

// NewTransactional buffers writes for one shared cache within one
// transaction scope.
func NewTransactional(delegate Cache, log logging.Logger) *Transactional {
	if log == nil {
		log = logging.Nop()
	}
	return &Transactional{
		delegate:    delegate,
		log:         log,
		pendingPuts: newKeyMap[Value](),
		missed:      newKeyMap[struct{}](),
	}
}

func (c *Transactional) ID() string { return c.delegate.ID() }

// Get reads through to the shared cache, recording misses. A null marker
// counts as a miss here too: the caller re-queries it, and tracking the key
// guarantees commit or rollback settles any blocking gate still held for
// it. While a clear is pending every lookup reports absent: the region is
// about to be wiped and serving soon-to-be-dropped entries would tear the
// transaction's view.
func (c *Transactional) Get(ctx context.Context, key *Key) (Value, bool, error) {
	v, ok, err := c.delegate.Get(ctx, key)
	if err != nil {
		return Value{}, false, err
	}
	if !ok || v.IsNull() {
		c.missed.put(key, struct{}{})
	}
	if c.clearPending {
		return Value{}, false, nil
	}
	return v, ok, nil
}

// Put stages the write; nothing reaches the shared cache before Commit.
func (c *Transactional) Put(_ context.Context, key *Key, value Value) error {
	c.pendingPuts.put(key, value)
	return nil
}

// Remove is intentionally inert: per-key invalidation inside an open
// transaction is expressed by clearing, never by removing sibling entries.
func (c *Transactional) Remove(_ context.Context, _ *Key) (Value, bool, error) {
	return Value{}, false, nil
}

// Clear marks the region for wiping at commit and drops writes staged so
// far.
func (c *Transactional) Clear(_ context.Context) error {
	c.clearPending = true
	c.pendingPuts.clear()
	return nil
}

func (c *Transactional) Size() int { return c.delegate.Size() }

// Commit applies the buffered state to the shared cache: clear first when
// pending, then staged writes, then null markers for unanswered misses.
func (c *Transactional) Commit(ctx context.Context) error {
	if c.clearPending {
		if err := c.delegate.Clear(ctx); err != nil {
			return err
		}
	}
	if err := c.flushPending(ctx); err != nil {
		return err
	}
	c.reset()
	return nil
}

// Rollback discards the buffer and removes missed keys from the shared
// cache. Per-key failures are logged and skipped so every gate still gets
// released.
func (c *Transactional) Rollback(ctx context.Context) error {
	c.missed.forEach(func(k *Key, _ struct{}) {
		if _, _, err := c.delegate.Remove(ctx, k); err != nil {
			c.log.Warn("rollback of cached entry failed", "cache", c.ID(), "key", k.String(), "error", err)
		}
	})
	c.reset()
	return nil
}

func (c *Transactional) flushPending(ctx context.Context) (err error) {
	c.pendingPuts.forEach(func(k *Key, v Value) {
		if err != nil {
			return
		}
		err = c.delegate.Put(ctx, k, v)
	})
	if err != nil {
		return err
	}
	c.missed.forEach(func(k *Key, _ struct{}) {
		if err != nil {
			return
		}
		if !c.pendingPuts.has(k) {
			err = c.delegate.Put(ctx, k, Null())
		}
	})
	return err
}

func (c *Transactional) reset() {
	c.clearPending = false
	c.pendingPuts.clear()
	c.missed.clear()
}

var _ Cache = (*Transactional)(nil)
