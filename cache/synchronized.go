package cache

import (
	"context"
	"sync"
)

// Synchronized serializes every operation on the wrapped chain with one
// mutex. It is the decorator that makes a shared region safe for use from
// concurrent sessions; Build always includes it for shared caches.
type Synchronized struct {
	mu       sync.Mutex
	delegate Cache
}

// NewSynchronized wraps delegate with a single mutex over all operations.
func NewSynchronized(delegate Cache) *Synchronized {
	return &Synchronized{delegate: delegate}
}

func (c *Synchronized) ID() string { return c.delegate.ID() }

func (c *Synchronized) Get(ctx context.Context, key *Key) (Value, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Get(ctx, key)
}

func (c *Synchronized) Put(ctx context.Context, key *Key, value Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Put(ctx, key, value)
}

func (c *Synchronized) Remove(ctx context.Context, key *Key) (Value, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Remove(ctx, key)
}

func (c *Synchronized) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Clear(ctx)
}

func (c *Synchronized) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate.Size()
}

var _ Cache = (*Synchronized)(nil)
