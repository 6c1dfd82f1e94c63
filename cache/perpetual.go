package cache

import "context"

// Perpetual is the base store: an unbounded in-memory map with no eviction
// and no expiry. It backs both the per-session local cache and, wrapped in
// decorators, every shared region. Not safe for concurrent use on its own.
type Perpetual struct {
	id      string
	entries *keyMap[Value]
}

// NewPerpetual returns an empty base store for the named region.
func NewPerpetual(id string) *Perpetual {
	return &Perpetual{id: id, entries: newKeyMap[Value]()}
}

func (c *Perpetual) ID() string { return c.id }

func (c *Perpetual) Get(_ context.Context, key *Key) (Value, bool, error) {
	v, ok := c.entries.get(key)
	return v, ok, nil
}

func (c *Perpetual) Put(_ context.Context, key *Key, value Value) error {
	c.entries.put(key, value)
	return nil
}

func (c *Perpetual) Remove(_ context.Context, key *Key) (Value, bool, error) {
	v, ok := c.entries.remove(key)
	return v, ok, nil
}

func (c *Perpetual) Clear(_ context.Context) error {
	c.entries.clear()
	return nil
}

func (c *Perpetual) Size() int { return c.entries.size() }

var _ Cache = (*Perpetual)(nil)
