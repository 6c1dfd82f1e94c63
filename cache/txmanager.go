package cache

import (
	"context"

	"github.com/electwix/db-mapper/internal/logging"
)

// TransactionalManager gives one transaction scope a write buffer per
// shared cache it touches. Buffers are created lazily on first use and
// keyed by cache identity, so two statements sharing a region share its
// buffer.
type TransactionalManager struct {
	log     logging.Logger
	buffers map[Cache]*Transactional
}

// NewTransactionalManager returns an empty manager for one transaction
// scope.
func NewTransactionalManager(log logging.Logger) *TransactionalManager {
	if log == nil {
		log = logging.Nop()
	}
	return &TransactionalManager{log: log, buffers: make(map[Cache]*Transactional)}
}

// Get reads key through cache's buffer.
func (m *TransactionalManager) Get(ctx context.Context, cache Cache, key *Key) (Value, bool, error) {
	return m.buffer(cache).Get(ctx, key)
}

// Put stages a write into cache's buffer.
func (m *TransactionalManager) Put(ctx context.Context, cache Cache, key *Key, value Value) error {
	return m.buffer(cache).Put(ctx, key, value)
}

// Clear marks cache for wiping at commit.
func (m *TransactionalManager) Clear(ctx context.Context, cache Cache) error {
	return m.buffer(cache).Clear(ctx)
}

// Commit flushes every buffer into its shared cache.
func (m *TransactionalManager) Commit(ctx context.Context) error {
	for _, buf := range m.buffers {
		if err := buf.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Rollback discards every buffer, unwinding miss bookkeeping in the shared
// caches.
func (m *TransactionalManager) Rollback(ctx context.Context) error {
	for _, buf := range m.buffers {
		if err := buf.Rollback(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *TransactionalManager) buffer(cache Cache) *Transactional {
	buf, ok := m.buffers[cache]
	if !ok {
		buf = NewTransactional(cache, m.log)
		m.buffers[cache] = buf
	}
	return buf
}
