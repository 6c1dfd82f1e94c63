package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/electwix/db-mapper/cache"
	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/internal/meta"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
)

// BaseExecutor coordinates the session-scoped cache tier around a
// statement strategy. It tracks nested query depth so deferred loads
// drain only when the outermost query finishes, shields in-flight
// queries with placeholders, and replays callable output parameters
// from local memory on repeat executions.
type BaseExecutor struct {
	cfg     *config.Config
	logger  logging.Logger
	tx      transaction.Transaction
	handler StatementHandler

	localCache        *cache.Perpetual
	localOutputParams *cache.Perpetual
	deferredLoads     []*deferredLoad
	queryStack        int
	closed            bool
}

var _ Executor = (*BaseExecutor)(nil)

// NewSimpleExecutor builds an executor that prepares each statement per
// call.
func NewSimpleExecutor(cfg *config.Config, tx transaction.Transaction) *BaseExecutor {
	return newBaseExecutor(cfg, tx, newSimpleHandler(cfg))
}

// NewReuseExecutor builds an executor that keeps prepared statements
// open for the session, keyed by SQL text.
func NewReuseExecutor(cfg *config.Config, tx transaction.Transaction) *BaseExecutor {
	return newBaseExecutor(cfg, tx, newReuseHandler(cfg))
}

// NewBatchExecutor builds an executor that queues writes and executes
// them in runs on flush.
func NewBatchExecutor(cfg *config.Config, tx transaction.Transaction) *BaseExecutor {
	return newBaseExecutor(cfg, tx, newBatchHandler(cfg))
}

func newBaseExecutor(cfg *config.Config, tx transaction.Transaction, handler StatementHandler) *BaseExecutor {
	return &BaseExecutor{
		cfg:               cfg,
		logger:            logging.FromSlog(cfg.Logger).With("component", "executor"),
		tx:                tx,
		handler:           handler,
		localCache:        cache.NewPerpetual("local-cache"),
		localOutputParams: cache.NewPerpetual("local-output-params"),
	}
}

func (e *BaseExecutor) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	bound, err := ms.BoundStatement(param)
	if err != nil {
		return nil, err
	}
	key, err := e.CreateCacheKey(ms, bounds, bound)
	if err != nil {
		return nil, err
	}
	return e.QueryWithKey(ctx, ms, param, bounds, handler, key, bound)
}

func (e *BaseExecutor) QueryWithKey(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler, key *cache.Key, bound *mapping.BoundStatement) ([]any, error) {
	if e.closed {
		return nil, ErrClosed
	}
	e.logger.Debug("executing query", "statement", ms.ID)
	if e.queryStack == 0 && ms.FlushCacheRequired {
		e.ClearLocalCache()
	}

	e.queryStack++
	rows, err := e.queryScoped(ctx, ms, bounds, handler, key, bound)
	e.queryStack--
	if err != nil {
		return nil, err
	}

	if e.queryStack == 0 {
		for len(e.deferredLoads) > 0 {
			d := e.deferredLoads[0]
			e.deferredLoads = e.deferredLoads[1:]
			if err := e.runDeferredLoad(ctx, d); err != nil {
				return nil, err
			}
		}
		if e.cfg.LocalCacheScope == config.ScopeStatement {
			e.ClearLocalCache()
		}
	}
	return rows, nil
}

// queryScoped serves one query at the current depth: local hit, local
// placeholder, or backing store.
func (e *BaseExecutor) queryScoped(ctx context.Context, ms *mapping.MappedStatement, bounds mapping.RowBounds, handler RowHandler, key *cache.Key, bound *mapping.BoundStatement) ([]any, error) {
	if handler == nil {
		val, ok, err := e.localCache.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			// A placeholder hit is a query for a key already executing
			// further up the stack; it resolves to no rows rather than
			// re-entering the backing store. A null marker is a completed
			// execution whose rows went to a row handler.
			var rows []any
			if !val.IsPlaceholder() && !val.IsNull() {
				rows = val.Rows()
			}
			if ms.Type == mapping.StatementCallable {
				if err := e.applyCachedOutputParams(ctx, ms, key, bound); err != nil {
					return nil, err
				}
			}
			return rows, nil
		}
	}
	return e.queryFromDatabase(ctx, ms, bounds, handler, key, bound)
}

// queryFromDatabase shields the execution with a placeholder, runs the
// statement, and replaces the placeholder with the outcome. The
// placeholder is removed even when the statement fails.
func (e *BaseExecutor) queryFromDatabase(ctx context.Context, ms *mapping.MappedStatement, bounds mapping.RowBounds, handler RowHandler, key *cache.Key, bound *mapping.BoundStatement) ([]any, error) {
	if err := e.localCache.Put(ctx, key, cache.Placeholder()); err != nil {
		return nil, err
	}
	rows, qerr := e.doQuery(ctx, ms, bounds, handler, bound)
	if _, _, err := e.localCache.Remove(ctx, key); err != nil && qerr == nil {
		qerr = err
	}
	if qerr != nil {
		return nil, qerr
	}

	result := cache.ValueOf(rows)
	if handler != nil {
		// The rows streamed out; remember completion, not contents.
		result = cache.Null()
	}
	if err := e.localCache.Put(ctx, key, result); err != nil {
		return nil, err
	}
	if ms.Type == mapping.StatementCallable {
		if err := e.localOutputParams.Put(ctx, key, cache.ValueOf(bound.Param)); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *BaseExecutor) doQuery(ctx context.Context, ms *mapping.MappedStatement, bounds mapping.RowBounds, handler RowHandler, bound *mapping.BoundStatement) ([]any, error) {
	db, err := e.tx.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("executor: acquire connection: %w", err)
	}
	ctx, cancel := e.statementContext(ctx, ms)
	defer cancel()
	return e.handler.Query(ctx, db, ms, bound, bounds, handler)
}

// applyCachedOutputParams copies OUT and INOUT property values from the
// parameter object remembered at execution time onto the current one.
func (e *BaseExecutor) applyCachedOutputParams(ctx context.Context, ms *mapping.MappedStatement, key *cache.Key, bound *mapping.BoundStatement) error {
	cached, ok, err := e.localOutputParams.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	source := cached.Data()
	for _, pm := range bound.Mappings {
		if pm.Mode == mapping.ModeIn {
			continue
		}
		value, _ := meta.Get(source, pm.Property)
		if err := meta.Set(bound.Param, pm.Property, value); err != nil {
			return fmt.Errorf("executor: replay output parameter %q of %s: %w", pm.Property, ms.ID, err)
		}
	}
	return nil
}

func (e *BaseExecutor) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	if e.closed {
		return 0, ErrClosed
	}
	e.logger.Debug("executing update", "statement", ms.ID)
	e.ClearLocalCache()
	bound, err := ms.BoundStatement(param)
	if err != nil {
		return 0, err
	}
	db, err := e.tx.DB(ctx)
	if err != nil {
		return 0, fmt.Errorf("executor: acquire connection: %w", err)
	}
	ctx, cancel := e.statementContext(ctx, ms)
	defer cancel()
	return e.handler.Update(ctx, db, ms, bound)
}

func (e *BaseExecutor) FlushStatements(ctx context.Context) ([]BatchResult, error) {
	return e.flushStatements(ctx, false)
}

func (e *BaseExecutor) flushStatements(ctx context.Context, isRollback bool) ([]BatchResult, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return e.handler.Flush(ctx, e.tx, isRollback)
}

func (e *BaseExecutor) Commit(ctx context.Context, required bool) error {
	if e.closed {
		return fmt.Errorf("executor: commit: %w", ErrClosed)
	}
	e.ClearLocalCache()
	if _, err := e.flushStatements(ctx, false); err != nil {
		return err
	}
	if required {
		if err := e.tx.Commit(); err != nil {
			return fmt.Errorf("executor: commit transaction: %w", err)
		}
	}
	return nil
}

func (e *BaseExecutor) Rollback(ctx context.Context, required bool) error {
	if e.closed {
		return nil
	}
	e.ClearLocalCache()
	_, ferr := e.flushStatements(ctx, true)
	// The transaction rolls back even when discarding queued work failed.
	if required {
		if err := e.tx.Rollback(); err != nil {
			if ferr == nil {
				ferr = fmt.Errorf("executor: roll back transaction: %w", err)
			} else {
				e.logger.Warn("rollback failed after flush error", "error", err)
			}
		}
	}
	return ferr
}

func (e *BaseExecutor) CreateCacheKey(ms *mapping.MappedStatement, bounds mapping.RowBounds, bound *mapping.BoundStatement) (*cache.Key, error) {
	if e.closed {
		return nil, ErrClosed
	}
	key := cache.NewKey()
	if err := key.UpdateAll(ms.ID, bounds.Offset, bounds.Limit, bound.SQL); err != nil {
		return nil, err
	}
	for _, pm := range bound.Mappings {
		if pm.Mode == mapping.ModeOut {
			continue
		}
		value := resolveParameterValue(e.cfg.Types, bound, pm.Property)
		if err := key.Update(value); err != nil {
			return nil, err
		}
	}
	if id := e.cfg.Environment.ID; id != "" {
		if err := key.Update(id); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func (e *BaseExecutor) IsCached(_ *mapping.MappedStatement, key *cache.Key) bool {
	if e.closed {
		return false
	}
	_, ok, _ := e.localCache.Get(context.Background(), key)
	return ok
}

func (e *BaseExecutor) ClearLocalCache() {
	if e.closed {
		return
	}
	_ = e.localCache.Clear(context.Background())
	_ = e.localOutputParams.Clear(context.Background())
}

// deferredLoad is one queued property fill waiting for a keyed result.
type deferredLoad struct {
	key      *cache.Key
	target   any
	property string
}

func (e *BaseExecutor) DeferLoad(ctx context.Context, ms *mapping.MappedStatement, target any, property string, key *cache.Key) error {
	if e.closed {
		return ErrClosed
	}
	d := &deferredLoad{key: key, target: target, property: property}
	if e.canLoadNow(ctx, key) {
		return e.runDeferredLoad(ctx, d)
	}
	e.deferredLoads = append(e.deferredLoads, d)
	return nil
}

// canLoadNow reports whether the local tier holds a completed result
// for key; an in-flight placeholder does not qualify.
func (e *BaseExecutor) canLoadNow(ctx context.Context, key *cache.Key) bool {
	val, ok, err := e.localCache.Get(ctx, key)
	return err == nil && ok && !val.IsPlaceholder()
}

func (e *BaseExecutor) runDeferredLoad(ctx context.Context, d *deferredLoad) error {
	val, ok, err := e.localCache.Get(ctx, d.key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("executor: deferred load of %q: no cached result for key %s", d.property, d.key)
	}
	value, err := extractLoadedValue(val.Rows(), d.target, d.property)
	if err != nil {
		return err
	}
	if err := meta.Set(d.target, d.property, value); err != nil {
		return fmt.Errorf("executor: deferred load of %q: %w", d.property, err)
	}
	return nil
}

// extractLoadedValue shapes cached rows for the target property: slice
// properties take the whole row set, scalar properties take the single
// row (or nil when there is none).
func extractLoadedValue(rows []any, target any, property string) (any, error) {
	if t, ok := meta.TypeOf(target, property); ok && t.Kind() == reflect.Slice && t != reflect.TypeOf([]byte(nil)) {
		return rows, nil
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("executor: deferred load of %q: %d rows for a single-value property", property, len(rows))
	}
}

func (e *BaseExecutor) Transaction() transaction.Transaction {
	return e.tx
}

func (e *BaseExecutor) Close(forceRollback bool) error {
	if e.closed {
		return nil
	}
	if err := e.Rollback(context.Background(), forceRollback); err != nil {
		e.logger.Warn("rollback during close failed", "error", err)
	}
	if e.tx != nil {
		if err := e.tx.Close(); err != nil {
			e.logger.Warn("transaction close failed", "error", err)
		}
	}
	e.tx = nil
	e.deferredLoads = nil
	e.closed = true
	return nil
}

// statementContext bounds a statement with its own timeout, falling
// back to the configured default.
func (e *BaseExecutor) statementContext(ctx context.Context, ms *mapping.MappedStatement) (context.Context, context.CancelFunc) {
	timeout := ms.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultStatementTimeout
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
