// Package executor runs mapped statements against the database through
// two cache tiers. BaseExecutor owns the session-scoped tier: a local
// result cache, callable output-parameter memory, and a deferred-load
// queue tied to nested query depth. CachingExecutor layers the shared
// tier on top, staging results in transactional buffers that publish on
// commit. Statement strategies (simple, reuse, batch) plug in underneath
// as StatementHandler implementations.
//
// Executors are session-scoped and not safe for concurrent use; shared
// state lives in the cache regions, which serialize access themselves.
package executor

import (
	"context"
	"errors"

	"github.com/electwix/db-mapper/cache"
	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
)

var (
	// ErrClosed reports an operation on an executor whose Close already
	// ran.
	ErrClosed = errors.New("executor: executor is closed")

	// ErrOutParamsNotCacheable reports a callable statement with OUT or
	// INOUT parameters routed through the shared cache, which cannot
	// replay output parameters.
	ErrOutParamsNotCacheable = errors.New("executor: callable statement with output parameters cannot use the shared cache")
)

// RowHandler receives rows as they are scanned. When a query runs with
// a handler, results stream to it instead of being collected, and the
// caches serve no rows for that call. Returning an error stops the scan.
type RowHandler func(row any) error

// PendingUpdateCount is returned by Update on a batching executor:
// the real count is unknown until the batch flushes.
const PendingUpdateCount int64 = -1

// BatchResult reports the outcome of one flushed batch run.
type BatchResult struct {
	// StatementID is the mapped statement the run executed.
	StatementID string
	// SQL is the statement text shared by every argument set in the run.
	SQL string
	// UpdateCounts holds one affected-row count per queued argument set,
	// in queue order.
	UpdateCounts []int64
}

// Executor is the statement execution engine behind a session.
type Executor interface {
	// Query binds ms against param, builds the cache key, and resolves
	// the result through the cache tiers.
	Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler) ([]any, error)

	// QueryWithKey is Query for callers that already bound the statement
	// and built its key.
	QueryWithKey(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler, key *cache.Key, bound *mapping.BoundStatement) ([]any, error)

	// Update executes a write statement and returns the affected-row
	// count, or PendingUpdateCount when the write was queued for a later
	// flush.
	Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error)

	// FlushStatements executes any queued batch runs and reports their
	// results.
	FlushStatements(ctx context.Context) ([]BatchResult, error)

	// Commit clears session-scoped state, flushes queued work, and
	// commits the transaction when required.
	Commit(ctx context.Context, required bool) error

	// Rollback discards session-scoped state and queued work, and rolls
	// the transaction back when required.
	Rollback(ctx context.Context, required bool) error

	// CreateCacheKey fingerprints one execution of a bound statement.
	CreateCacheKey(ms *mapping.MappedStatement, bounds mapping.RowBounds, bound *mapping.BoundStatement) (*cache.Key, error)

	// IsCached reports whether the local tier holds an entry for key,
	// including in-flight placeholders.
	IsCached(ms *mapping.MappedStatement, key *cache.Key) bool

	// ClearLocalCache drops the local tier and output-parameter memory.
	ClearLocalCache()

	// DeferLoad resolves target.property from the local tier now when
	// the keyed result is available, or queues the load until the
	// outermost query finishes.
	DeferLoad(ctx context.Context, ms *mapping.MappedStatement, target any, property string, key *cache.Key) error

	// Transaction exposes the transaction the executor runs on.
	Transaction() transaction.Transaction

	// Close releases the executor: best-effort rollback (forced or
	// lifecycle-driven), transaction close, state drop. Failures are
	// logged, not returned.
	Close(forceRollback bool) error
}

// New builds the executor stack for one session: a base executor with
// the chosen statement strategy, wrapped with the shared-cache
// orchestrator when the configuration enables it.
func New(cfg *config.Config, tx transaction.Transaction, kind config.ExecutorType) Executor {
	var base Executor
	switch kind {
	case config.ExecReuse:
		base = NewReuseExecutor(cfg, tx)
	case config.ExecBatch:
		base = NewBatchExecutor(cfg, tx)
	default:
		base = NewSimpleExecutor(cfg, tx)
	}
	if cfg.CacheEnabled {
		return NewCachingExecutor(base, cfg.Logger)
	}
	return base
}
