package cache

import (
	"container/list"
	"context"
)

// FIFO evicts keys in insertion order once the queue exceeds capacity.
// Unlike LRU it keeps no per-key index: storing the same key twice enqueues
// it twice, and the earlier queue slot still counts toward capacity until
// it reaches the head. Get never affects eviction order. Not safe for
// concurrent use.
type FIFO struct {
	delegate Cache
	capacity int
	queue    *list.List // front = oldest; element value is *Key
}

// NewFIFO wraps delegate with first-in-first-out eviction. A non-positive
// capacity falls back to DefaultCapacity.
func NewFIFO(delegate Cache, capacity int) *FIFO {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FIFO{delegate: delegate, capacity: capacity, queue: list.New()}
}

func (c *FIFO) ID() string { return c.delegate.ID() }

func (c *FIFO) Get(ctx context.Context, key *Key) (Value, bool, error) {
	return c.delegate.Get(ctx, key)
}

func (c *FIFO) Put(ctx context.Context, key *Key, value Value) error {
	if err := c.cycle(ctx, key); err != nil {
		return err
	}
	return c.delegate.Put(ctx, key, value)
}

func (c *FIFO) cycle(ctx context.Context, key *Key) error {
	c.queue.PushBack(key)
	if c.queue.Len() <= c.capacity {
		return nil
	}
	oldest := c.queue.Front()
	c.queue.Remove(oldest)
	_, _, err := c.delegate.Remove(ctx, oldest.Value.(*Key))
	return err
}

func (c *FIFO) Remove(ctx context.Context, key *Key) (Value, bool, error) {
	return c.delegate.Remove(ctx, key)
}

func (c *FIFO) Clear(ctx context.Context) error {
	c.queue.Init()
	return c.delegate.Clear(ctx)
}

func (c *FIFO) Size() int { return c.delegate.Size() }

var _ Cache = (*FIFO)(nil)
