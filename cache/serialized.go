package cache

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Serialized stores an encoded copy of each value and decodes a fresh one
// per Get, so readers can mutate returned rows without corrupting the
// cache. Sentinel values pass through untouched. Decoded payloads carry
// loose types: rows come back as []any of maps with int64/float64/string
// scalars, which is exactly the shape the row scanner produces.
type Serialized struct {
	delegate Cache
}

// NewSerialized wraps delegate with copy-on-read value encoding.
func NewSerialized(delegate Cache) *Serialized {
	return &Serialized{delegate: delegate}
}

func (c *Serialized) ID() string { return c.delegate.ID() }

func (c *Serialized) Get(ctx context.Context, key *Key) (Value, bool, error) {
	v, ok, err := c.delegate.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	if v.IsNull() || v.IsPlaceholder() {
		return v, true, nil
	}
	encoded, ok := v.Data().([]byte)
	if !ok {
		return Value{}, false, fmt.Errorf("cache %s: entry for key %s is not an encoded copy", c.ID(), key)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(encoded))
	dec.UseLooseInterfaceDecoding(true)
	var data any
	if err := dec.Decode(&data); err != nil {
		return Value{}, false, fmt.Errorf("cache %s: decode entry for key %s: %w", c.ID(), key, err)
	}
	return ValueOf(data), true, nil
}

func (c *Serialized) Put(ctx context.Context, key *Key, value Value) error {
	if value.IsNull() || value.IsPlaceholder() {
		return c.delegate.Put(ctx, key, value)
	}
	encoded, err := msgpack.Marshal(value.Data())
	if err != nil {
		return fmt.Errorf("cache %s: encode entry for key %s: %w", c.ID(), key, err)
	}
	return c.delegate.Put(ctx, key, ValueOf(encoded))
}

func (c *Serialized) Remove(ctx context.Context, key *Key) (Value, bool, error) {
	return c.delegate.Remove(ctx, key)
}

func (c *Serialized) Clear(ctx context.Context) error {
	return c.delegate.Clear(ctx)
}

func (c *Serialized) Size() int { return c.delegate.Size() }

var _ Cache = (*Serialized)(nil)
