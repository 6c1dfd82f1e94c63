package cache

import (
	"container/list"
	"context"
)

// DefaultCapacity bounds eviction decorators that were built without an
// explicit capacity.
const DefaultCapacity = 1024

// LRU evicts the least recently used key once its recency index exceeds
// capacity. The index is bookkeeping layered over the wrapped cache, not a
// second store: Get refreshes recency whenever the key is known to the
// index, even if the wrapped cache no longer holds it, and Remove leaves
// the index untouched. The two therefore disagree transiently; the index
// reconverges as stale entries age out. Not safe for concurrent use; Build
// wraps shared regions in Synchronized above this decorator.
type LRU struct {
	delegate Cache
	capacity int
	index    *keyMap[*list.Element]
	order    *list.List // front = most recent; element value is *Key
}

// NewLRU wraps delegate with least-recently-used eviction. A non-positive
// capacity falls back to DefaultCapacity.
func NewLRU(delegate Cache, capacity int) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU{
		delegate: delegate,
		capacity: capacity,
		index:    newKeyMap[*list.Element](),
		order:    list.New(),
	}
}

func (c *LRU) ID() string { return c.delegate.ID() }

func (c *LRU) Get(ctx context.Context, key *Key) (Value, bool, error) {
	if elem, ok := c.index.get(key); ok {
		c.order.MoveToFront(elem)
	}
	return c.delegate.Get(ctx, key)
}

func (c *LRU) Put(ctx context.Context, key *Key, value Value) error {
	if err := c.delegate.Put(ctx, key, value); err != nil {
		return err
	}
	return c.cycle(ctx, key)
}

// cycle records key as most recent and evicts the strict least recently
// used victim when the index outgrows capacity.
func (c *LRU) cycle(ctx context.Context, key *Key) error {
	if elem, ok := c.index.get(key); ok {
		c.order.MoveToFront(elem)
		return nil
	}
	c.index.put(key, c.order.PushFront(key))
	if c.order.Len() <= c.capacity {
		return nil
	}
	eldest := c.order.Back()
	victim := eldest.Value.(*Key)
	c.order.Remove(eldest)
	c.index.remove(victim)
	_, _, err := c.delegate.Remove(ctx, victim)
	return err
}

// Remove deletes from the wrapped cache only; the recency entry stays
// until it ages out.
func (c *LRU) Remove(ctx context.Context, key *Key) (Value, bool, error) {
	return c.delegate.Remove(ctx, key)
}

func (c *LRU) Clear(ctx context.Context) error {
	c.index.clear()
	c.order.Init()
	return c.delegate.Clear(ctx)
}

func (c *LRU) Size() int { return c.delegate.Size() }

var _ Cache = (*LRU)(nil)
