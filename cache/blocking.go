package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LockTimeoutError reports a Blocking Get that gave up waiting for the
// in-flight fetch of the same key. The gate is still owned by the original
// acquirer; the caller may retry.
type LockTimeoutError struct {
	CacheID string
	Key     *Key
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("cache %s: timed out after %s waiting for a lock on key %s", e.CacheID, e.Timeout, e.Key)
}

// Blocking serializes fetches of the same key: the first Get of an absent
// key acquires a per-key gate and proceeds to load, later Gets of that key
// block until the owner publishes with Put or gives up with Remove. A Get
// that finds a value releases immediately. At most one backing fetch per
// key is in flight at any time.
//
// Waiters are bounded by the configured timeout (per wait; zero waits
// indefinitely) and by ctx. The gate map carries its own lock, so Blocking
// wraps the Synchronized decorator rather than relying on it.
type Blocking struct {
	delegate Cache
	timeout  time.Duration

	mu    sync.Mutex
	gates *keyMap[chan struct{}]
}

// NewBlocking wraps delegate with per-key single-flight gating. timeout
// bounds each wait for a held gate; zero means wait until release.
func NewBlocking(delegate Cache, timeout time.Duration) *Blocking {
	return &Blocking{delegate: delegate, timeout: timeout, gates: newKeyMap[chan struct{}]()}
}

func (c *Blocking) ID() string { return c.delegate.ID() }

// Timeout reports the configured per-wait bound.
func (c *Blocking) Timeout() time.Duration { return c.timeout }

func (c *Blocking) Get(ctx context.Context, key *Key) (Value, bool, error) {
	if err := c.acquire(ctx, key); err != nil {
		return Value{}, false, err
	}
	v, ok, err := c.delegate.Get(ctx, key)
	if err != nil {
		// Release rather than leave the gate dangling: a caller that got
		// an error will not follow up with Put.
		c.release(key)
		return Value{}, false, err
	}
	// A null marker is a confirmed miss to the caller, who will re-query
	// and publish through Put. The gate stays held so that Put performs
	// the release and concurrent fetches of the key remain single-flight.
	if ok && !v.IsNull() {
		c.release(key)
	}
	return v, ok, nil
}

// Put publishes the fetched value and releases the gate held since the
// missed Get.
func (c *Blocking) Put(ctx context.Context, key *Key, value Value) error {
	defer c.release(key)
	return c.delegate.Put(ctx, key, value)
}

// Remove releases the gate without touching the wrapped cache. It is the
// give-up signal for a fetch that failed after a missed Get.
func (c *Blocking) Remove(_ context.Context, key *Key) (Value, bool, error) {
	c.release(key)
	return Value{}, false, nil
}

func (c *Blocking) Clear(ctx context.Context) error {
	return c.delegate.Clear(ctx)
}

func (c *Blocking) Size() int { return c.delegate.Size() }

// acquire wins the gate for key, waiting out any current holder. On
// success the caller owns the gate iff the subsequent Get misses.
func (c *Blocking) acquire(ctx context.Context, key *Key) error {
	for {
		c.mu.Lock()
		held, ok := c.gates.get(key)
		if !ok {
			c.gates.put(key, make(chan struct{}))
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		if c.timeout > 0 {
			timer := time.NewTimer(c.timeout)
			select {
			case <-held:
				timer.Stop()
			case <-timer.C:
				return &LockTimeoutError{CacheID: c.ID(), Key: key, Timeout: c.timeout}
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		} else {
			select {
			case <-held:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// release wakes every waiter of the key's gate. Releasing a gate nobody
// holds is a programming defect, never a recoverable condition.
func (c *Blocking) release(key *Key) {
	c.mu.Lock()
	held, ok := c.gates.remove(key)
	c.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("cache %s: released a lock that was not held on key %s", c.ID(), key))
	}
	close(held)
}

var _ Cache = (*Blocking)(nil)
