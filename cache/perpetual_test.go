package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPerpetual_PutGet(t *testing.T) {
	ctx := context.Background()
	c := NewPerpetual("local")
	key := mustKey(t, "stmt", int64(1))

	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	rows := []any{map[string]any{"id": int64(1), "name": "ada"}}
	if err := c.Put(ctx, key, ValueOf(rows)); err != nil {
		t.Fatalf("Put = %v, want nil", err)
	}

	v, ok, err := c.Get(ctx, mustKey(t, "stmt", int64(1)))
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want hit", ok, err)
	}
	if diff := cmp.Diff(rows, v.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestPerpetual_ReplaceAndRemove(t *testing.T) {
	ctx := context.Background()
	c := NewPerpetual("local")
	key := mustKey(t, "k")

	_ = c.Put(ctx, key, ValueOf([]any{"old"}))
	_ = c.Put(ctx, key, ValueOf([]any{"new"}))
	if got := c.Size(); got != 1 {
		t.Fatalf("Size after replace = %d, want 1", got)
	}

	prev, ok, err := c.Remove(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Remove = (%v, %v), want hit", ok, err)
	}
	if got := prev.Rows()[0]; got != "new" {
		t.Errorf("removed value = %v, want new", got)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Error("Get after Remove reported a hit")
	}
	if _, ok, _ := c.Remove(ctx, key); ok {
		t.Error("second Remove reported a hit")
	}
}

func TestPerpetual_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewPerpetual("local")
	for i := 0; i < 5; i++ {
		_ = c.Put(ctx, mustKey(t, "stmt", int64(i)), ValueOf([]any{i}))
	}
	if got := c.Size(); got != 5 {
		t.Fatalf("Size = %d, want 5", got)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear = %v, want nil", err)
	}
	if got := c.Size(); got != 0 {
		t.Errorf("Size after Clear = %d, want 0", got)
	}
}

func TestPerpetual_SentinelValues(t *testing.T) {
	ctx := context.Background()
	c := NewPerpetual("local")
	key := mustKey(t, "pending")

	_ = c.Put(ctx, key, Placeholder())
	v, ok, _ := c.Get(ctx, key)
	if !ok || !v.IsPlaceholder() {
		t.Fatalf("Get = (%v, placeholder=%v), want placeholder hit", ok, v.IsPlaceholder())
	}

	_ = c.Put(ctx, key, Null())
	v, ok, _ = c.Get(ctx, key)
	if !ok || !v.IsNull() {
		t.Fatalf("Get = (%v, null=%v), want null-marker hit", ok, v.IsNull())
	}
	if v.Rows() != nil {
		t.Errorf("null marker Rows = %v, want nil", v.Rows())
	}
}

func TestPerpetual_ManyDistinctKeys(t *testing.T) {
	ctx := context.Background()
	c := NewPerpetual("local")

	const n = 200
	for i := 0; i < n; i++ {
		key := mustKey(t, "stmt", fmt.Sprintf("param-%d", i), int64(i))
		_ = c.Put(ctx, key, ValueOf([]any{i}))
	}
	if got := c.Size(); got != n {
		t.Fatalf("Size = %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		key := mustKey(t, "stmt", fmt.Sprintf("param-%d", i), int64(i))
		v, ok, _ := c.Get(ctx, key)
		if !ok {
			t.Fatalf("key %d missing", i)
		}
		if got := v.Rows()[0]; got != i {
			t.Fatalf("key %d value = %v, want %d", i, got, i)
		}
	}
}
