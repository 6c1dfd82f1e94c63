package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
	"github.com/electwix/db-mapper/types"
)

// reuseHandler keeps prepared statements open for the life of the
// session, keyed by SQL text. Flush closes them all.
type reuseHandler struct {
	types  *types.Registry
	logger logging.Logger
	stmts  map[string]*sql.Stmt
}

var _ StatementHandler = (*reuseHandler)(nil)

func newReuseHandler(cfg *config.Config) *reuseHandler {
	return &reuseHandler{
		types:  cfg.Types,
		logger: logging.FromSlog(cfg.Logger).With("component", "executor"),
		stmts:  make(map[string]*sql.Stmt),
	}
}

func (h *reuseHandler) prepare(ctx context.Context, db transaction.DBTX, sqlText string) (*sql.Stmt, error) {
	if stmt, ok := h.stmts[sqlText]; ok {
		return stmt, nil
	}
	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("executor: prepare: %w", err)
	}
	h.stmts[sqlText] = stmt
	return stmt, nil
}

func (h *reuseHandler) Query(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	args, err := bindArgs(h.types, bound)
	if err != nil {
		return nil, err
	}
	stmt, err := h.prepare(ctx, db, bound.SQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("executor: query %s: %w", ms.ID, err)
	}
	defer rows.Close()
	return scanRows(h.types, rows, bounds, handler)
}

func (h *reuseHandler) Update(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement) (int64, error) {
	args, err := bindArgs(h.types, bound)
	if err != nil {
		return 0, err
	}
	stmt, err := h.prepare(ctx, db, bound.SQL)
	if err != nil {
		return 0, err
	}
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("executor: update %s: %w", ms.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("executor: update %s: affected rows: %w", ms.ID, err)
	}
	return affected, nil
}

// Flush releases every cached prepared statement.
func (h *reuseHandler) Flush(context.Context, transaction.Transaction, bool) ([]BatchResult, error) {
	for sqlText, stmt := range h.stmts {
		if err := stmt.Close(); err != nil {
			h.logger.Warn("closing prepared statement failed", "error", err)
		}
		delete(h.stmts, sqlText)
	}
	return nil, nil
}
