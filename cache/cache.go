package cache

import "context"

// Cache is the contract shared by the base store and every decorator.
//
// Implementations are not required to be safe for concurrent use; shared
// regions are composed with the Synchronized (and optionally Blocking)
// decorators by Build. Get blocks only in the Blocking decorator, bounded
// by its timeout and by ctx.
type Cache interface {
	// ID names the region the cache serves.
	ID() string
	// Get returns the value stored at key. The second return is false when
	// the key is absent.
	Get(ctx context.Context, key *Key) (Value, bool, error)
	// Put stores value at key, replacing any previous entry.
	Put(ctx context.Context, key *Key, value Value) error
	// Remove deletes the entry at key, returning the previous value when
	// one was present.
	Remove(ctx context.Context, key *Key) (Value, bool, error)
	// Clear drops every entry.
	Clear(ctx context.Context) error
	// Size reports the number of stored entries.
	Size() int
}
