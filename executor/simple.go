package executor

import (
	"context"
	"fmt"

	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
	"github.com/electwix/db-mapper/types"
)

// simpleHandler executes every statement directly on the transaction
// handle, leaving preparation to the driver.
type simpleHandler struct {
	types *types.Registry
}

var _ StatementHandler = (*simpleHandler)(nil)

func newSimpleHandler(cfg *config.Config) *simpleHandler {
	return &simpleHandler{types: cfg.Types}
}

func (h *simpleHandler) Query(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	args, err := bindArgs(h.types, bound)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, bound.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("executor: query %s: %w", ms.ID, err)
	}
	defer rows.Close()
	return scanRows(h.types, rows, bounds, handler)
}

func (h *simpleHandler) Update(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement) (int64, error) {
	args, err := bindArgs(h.types, bound)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, bound.SQL, args...)
	if err != nil {
		return 0, fmt.Errorf("executor: update %s: %w", ms.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("executor: update %s: affected rows: %w", ms.ID, err)
	}
	return affected, nil
}

func (h *simpleHandler) Flush(context.Context, transaction.Transaction, bool) ([]BatchResult, error) {
	return nil, nil
}
