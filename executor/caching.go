package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/electwix/db-mapper/cache"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
)

// CachingExecutor adds the shared cache tier on top of another
// executor. Reads consult a statement's cache region through
// transactional buffers; writes stage into those buffers and publish
// when the session commits, so other sessions never observe
// uncommitted results.
type CachingExecutor struct {
	delegate Executor
	tcm      *cache.TransactionalManager
	logger   logging.Logger
}

var _ Executor = (*CachingExecutor)(nil)

// NewCachingExecutor wraps delegate with shared-cache orchestration.
func NewCachingExecutor(delegate Executor, logger *slog.Logger) *CachingExecutor {
	l := logging.FromSlog(logger).With("component", "caching-executor")
	return &CachingExecutor{
		delegate: delegate,
		tcm:      cache.NewTransactionalManager(l),
		logger:   l,
	}
}

func (e *CachingExecutor) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	bound, err := ms.BoundStatement(param)
	if err != nil {
		return nil, err
	}
	key, err := e.delegate.CreateCacheKey(ms, bounds, bound)
	if err != nil {
		return nil, err
	}
	return e.QueryWithKey(ctx, ms, param, bounds, handler, key, bound)
}

func (e *CachingExecutor) QueryWithKey(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler, key *cache.Key, bound *mapping.BoundStatement) ([]any, error) {
	region := ms.Cache
	if region != nil {
		if err := e.flushIfRequired(ctx, ms); err != nil {
			return nil, err
		}
		if ms.UseCache && handler == nil {
			if err := ensureNoOutParams(ms, bound); err != nil {
				return nil, err
			}
			val, ok, err := e.tcm.Get(ctx, region, key)
			if err != nil {
				return nil, err
			}
			// A null marker records an unanswered miss from an earlier
			// transaction; the key is re-queried so this session can
			// stage a real answer.
			if ok && !val.IsNull() {
				e.logger.Debug("shared cache hit", "cache", region.ID(), "statement", ms.ID)
				return val.Rows(), nil
			}
			rows, err := e.delegate.QueryWithKey(ctx, ms, param, bounds, handler, key, bound)
			if err != nil {
				return nil, err
			}
			if err := e.tcm.Put(ctx, region, key, cache.ValueOf(rows)); err != nil {
				return nil, err
			}
			return rows, nil
		}
	}
	return e.delegate.QueryWithKey(ctx, ms, param, bounds, handler, key, bound)
}

// ensureNoOutParams rejects caching for callable statements with
// output parameters: replaying rows cannot replay OUT values.
func ensureNoOutParams(ms *mapping.MappedStatement, bound *mapping.BoundStatement) error {
	if ms.Type != mapping.StatementCallable {
		return nil
	}
	for _, pm := range bound.Mappings {
		if pm.Mode != mapping.ModeIn {
			return fmt.Errorf("executor: statement %s: %w", ms.ID, ErrOutParamsNotCacheable)
		}
	}
	return nil
}

// flushIfRequired clears the statement's buffered region before
// execution when the statement demands it.
func (e *CachingExecutor) flushIfRequired(ctx context.Context, ms *mapping.MappedStatement) error {
	if ms.Cache != nil && ms.FlushCacheRequired {
		return e.tcm.Clear(ctx, ms.Cache)
	}
	return nil
}

func (e *CachingExecutor) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	if err := e.flushIfRequired(ctx, ms); err != nil {
		return 0, err
	}
	return e.delegate.Update(ctx, ms, param)
}

func (e *CachingExecutor) FlushStatements(ctx context.Context) ([]BatchResult, error) {
	return e.delegate.FlushStatements(ctx)
}

func (e *CachingExecutor) Commit(ctx context.Context, required bool) error {
	if err := e.delegate.Commit(ctx, required); err != nil {
		return err
	}
	return e.tcm.Commit(ctx)
}

func (e *CachingExecutor) Rollback(ctx context.Context, required bool) error {
	err := e.delegate.Rollback(ctx, required)
	if required {
		if rerr := e.tcm.Rollback(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

func (e *CachingExecutor) CreateCacheKey(ms *mapping.MappedStatement, bounds mapping.RowBounds, bound *mapping.BoundStatement) (*cache.Key, error) {
	return e.delegate.CreateCacheKey(ms, bounds, bound)
}

func (e *CachingExecutor) IsCached(ms *mapping.MappedStatement, key *cache.Key) bool {
	return e.delegate.IsCached(ms, key)
}

func (e *CachingExecutor) ClearLocalCache() {
	e.delegate.ClearLocalCache()
}

func (e *CachingExecutor) DeferLoad(ctx context.Context, ms *mapping.MappedStatement, target any, property string, key *cache.Key) error {
	return e.delegate.DeferLoad(ctx, ms, target, property, key)
}

func (e *CachingExecutor) Transaction() transaction.Transaction {
	return e.delegate.Transaction()
}

func (e *CachingExecutor) Close(forceRollback bool) error {
	ctx := context.Background()
	if forceRollback {
		if err := e.tcm.Rollback(ctx); err != nil {
			e.logger.Warn("shared cache rollback failed during close", "error", err)
		}
	} else {
		if err := e.tcm.Commit(ctx); err != nil {
			e.logger.Warn("shared cache commit failed during close", "error", err)
		}
	}
	return e.delegate.Close(forceRollback)
}
