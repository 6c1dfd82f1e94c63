package cache

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/electwix/db-mapper/internal/logging"
)

func TestLogged_TracksHitRatio(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	c := NewLogged(NewPerpetual("region"), logging.FromSlog(logging.New(logging.Options{Verbose: true, Writer: &buf})))
	key := mustKey(t, "k")

	_, _, _ = c.Get(ctx, key) // miss
	_ = c.Put(ctx, key, ValueOf([]any{"row"}))
	_, _, _ = c.Get(ctx, key) // hit
	_, _, _ = c.Get(ctx, key) // hit

	if got := c.Requests(); got != 3 {
		t.Errorf("Requests = %d, want 3", got)
	}
	if got := c.Hits(); got != 2 {
		t.Errorf("Hits = %d, want 2", got)
	}
	if got, want := c.HitRatio(), 2.0/3.0; got != want {
		t.Errorf("HitRatio = %v, want %v", got, want)
	}
	if out := buf.String(); !strings.Contains(out, "cache=region") {
		t.Errorf("log output = %q, want region attribute", out)
	}
}

func TestLogged_NilLoggerKeepsCounters(t *testing.T) {
	ctx := context.Background()
	c := NewLogged(NewPerpetual("region"), nil)
	key := mustKey(t, "k")

	_, _, _ = c.Get(ctx, key)
	if got := c.Requests(); got != 1 {
		t.Errorf("Requests = %d, want 1", got)
	}
	if got := c.HitRatio(); got != 0 {
		t.Errorf("HitRatio = %v, want 0 before any hit", got)
	}
}

func TestScheduled_ClearsAfterInterval(t *testing.T) {
	ctx := context.Background()
	c := NewScheduled(NewPerpetual("region"), time.Nanosecond)
	key := mustKey(t, "k")

	_ = c.Put(ctx, key, ValueOf([]any{"row"}))
	time.Sleep(5 * time.Millisecond)

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Errorf("Get after interval = (%v, %v), want stale region flushed", ok, err)
	}
	if got := c.Size(); got != 0 {
		t.Errorf("Size after flush = %d, want 0", got)
	}
}

func TestScheduled_KeepsFreshEntries(t *testing.T) {
	ctx := context.Background()
	c := NewScheduled(NewPerpetual("region"), time.Hour)
	key := mustKey(t, "k")

	_ = c.Put(ctx, key, ValueOf([]any{"row"}))
	if _, ok, err := c.Get(ctx, key); err != nil || !ok {
		t.Errorf("Get within interval = (%v, %v), want hit", ok, err)
	}
}

func TestSynchronized_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewSynchronized(NewPerpetual("region"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			k := mustKeyQuiet("writer", int64(i))
			_ = c.Put(ctx, k, ValueOf([]any{i}))
		}
	}()
	for i := 0; i < 100; i++ {
		k := mustKeyQuiet("reader", int64(i))
		_, _, _ = c.Get(ctx, k)
	}
	<-done
	if got := c.Size(); got != 100 {
		t.Errorf("Size = %d, want 100", got)
	}
}

// mustKeyQuiet builds a key outside a test helper context, for use inside
// goroutines.
func mustKeyQuiet(values ...any) *Key {
	k := NewKey()
	if err := k.UpdateAll(values...); err != nil {
		panic(err)
	}
	return k
}
