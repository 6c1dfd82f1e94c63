package executor

import (
	"context"
	"fmt"

	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
	"github.com/electwix/db-mapper/types"
)

// batchRun is a group of queued argument sets sharing one statement.
type batchRun struct {
	statementID string
	sql         string
	argSets     [][]any
}

// batchHandler queues writes and executes them in runs on flush.
// Consecutive updates with the same statement and SQL join the current
// run; anything else starts a new one, preserving execution order.
type batchHandler struct {
	types  *types.Registry
	logger logging.Logger

	runs       []*batchRun
	currentSQL string
	currentID  string
}

var _ StatementHandler = (*batchHandler)(nil)

func newBatchHandler(cfg *config.Config) *batchHandler {
	return &batchHandler{
		types:  cfg.Types,
		logger: logging.FromSlog(cfg.Logger).With("component", "executor"),
	}
}

// Query flushes queued runs first so reads observe queued writes.
func (h *batchHandler) Query(ctx context.Context, db transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	if runs := h.take(); len(runs) > 0 {
		if _, err := h.execute(ctx, db, runs); err != nil {
			return nil, err
		}
	}
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

func (h *batchHandler) Update(ctx context.Context, _ transaction.DBTX, ms *mapping.MappedStatement, bound *mapping.BoundStatement) (int64, error) {
	args, err := bindArgs(h.types, bound)
	if err != nil {
		return 0, err
	}
	if bound.SQL == h.currentSQL && ms.ID == h.currentID && len(h.runs) > 0 {
		run := h.runs[len(h.runs)-1]
		run.argSets = append(run.argSets, args)
	} else {
		h.runs = append(h.runs, &batchRun{
			statementID: ms.ID,
			sql:         bound.SQL,
			argSets:     [][]any{args},
		})
		h.currentSQL = bound.SQL
		h.currentID = ms.ID
	}
	return PendingUpdateCount, nil
}

func (h *batchHandler) Flush(ctx context.Context, tx transaction.Transaction, isRollback bool) ([]BatchResult, error) {
	runs := h.take()
	if isRollback || len(runs) == 0 {
		return nil, nil
	}
	db, err := tx.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("executor: acquire connection: %w", err)
	}
	return h.execute(ctx, db, runs)
}

// take snapshots the queue and resets coalescing state.
func (h *batchHandler) take() []*batchRun {
	runs := h.runs
	h.runs = nil
	h.currentSQL = ""
	h.currentID = ""
	return runs
}

func (h *batchHandler) execute(ctx context.Context, db transaction.DBTX, runs []*batchRun) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(runs))
	for i, run := range runs {
		result := BatchResult{StatementID: run.statementID, SQL: run.sql}
		for _, args := range run.argSets {
			res, err := db.ExecContext(ctx, run.sql, args...)
			if err != nil {
				return nil, fmt.Errorf("executor: flush batch %s (run %d): %w", run.statementID, i+1, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				h.logger.Warn("batch affected-row count unavailable", "statement", run.statementID, "error", err)
				affected = PendingUpdateCount
			}
			result.UpdateCounts = append(result.UpdateCounts, affected)
		}
		results = append(results, result)
	}
	return results, nil
}
