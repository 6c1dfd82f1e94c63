package cache

import (
	"context"
	"testing"
)

func TestFIFO_EvictsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := NewFIFO(NewPerpetual("region"), 2)
	keys := lruKeys(t, 3)

	_ = c.Put(ctx, keys[0], ValueOf([]any{"a"}))
	_ = c.Put(ctx, keys[1], ValueOf([]any{"b"}))

	// Reads must not affect the queue.
	if _, ok, _ := c.Get(ctx, keys[0]); !ok {
		t.Fatal("stored key missing")
	}

	_ = c.Put(ctx, keys[2], ValueOf([]any{"c"}))

	if _, ok, _ := c.Get(ctx, keys[0]); ok {
		t.Error("oldest key survived, want insertion-order eviction")
	}
	for _, k := range keys[1:] {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Errorf("key %s evicted, want it retained", k)
		}
	}
}

// Re-storing a key enqueues it again; the old slot still counts toward
// capacity until it drains.
func TestFIFO_DuplicatePutCountsTwice(t *testing.T) {
	ctx := context.Background()
	c := NewFIFO(NewPerpetual("region"), 2)
	keys := lruKeys(t, 2)

	_ = c.Put(ctx, keys[0], ValueOf([]any{"a"}))
	_ = c.Put(ctx, keys[0], ValueOf([]any{"a2"}))
	_ = c.Put(ctx, keys[1], ValueOf([]any{"b"}))

	// The duplicate slot for keys[0] reached the head and evicted the key
	// itself even though it was just refreshed.
	if _, ok, _ := c.Get(ctx, keys[0]); ok {
		t.Error("duplicated key survived its own stale queue slot")
	}
	if _, ok, _ := c.Get(ctx, keys[1]); !ok {
		t.Error("newest key evicted, want it retained")
	}
}

func TestFIFO_ClearResetsQueue(t *testing.T) {
	ctx := context.Background()
	c := NewFIFO(NewPerpetual("region"), 2)
	keys := lruKeys(t, 2)

	_ = c.Put(ctx, keys[0], ValueOf([]any{"a"}))
	_ = c.Clear(ctx)
	_ = c.Put(ctx, keys[0], ValueOf([]any{"a"}))
	_ = c.Put(ctx, keys[1], ValueOf([]any{"b"}))

	for _, k := range keys {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Errorf("key %s missing after post-clear refill", k)
		}
	}
}
