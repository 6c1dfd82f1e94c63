package executor

import (
	"context"

	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
)

// StatementHandler is the backing-store seam: it turns bound statements
// into driver calls on whatever handle the transaction provides. The
// base executor owns caching, scope, and lifecycle; handlers own SQL
// execution strategy.
type StatementHandler interface {
	// Query executes a bound select and returns the scanned rows, or
	// streams them to handler when one is given.
	Query(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement, bounds mapping.RowBounds, handler RowHandler) ([]any, error)

	// Update executes a bound write and returns the affected-row count,
	// or PendingUpdateCount when the handler queues writes.
	Update(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement) (int64, error)

	// Flush executes queued work and releases per-handler resources.
	// With isRollback set, queued work is discarded instead. Flush takes
	// the transaction rather than a handle so handlers with nothing to
	// run touch no connection.
	Flush(ctx context.Context, tx transaction.Transaction, isRollback bool) ([]BatchResult, error)
}
