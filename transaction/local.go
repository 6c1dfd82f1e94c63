package transaction

import (
	"context"
	"database/sql"
	"fmt"
)

// Local manages its own sql.Tx on a caller-owned *sql.DB. In auto-commit
// mode statements run directly on the pool and Commit/Rollback are
// no-ops; otherwise the first DB call begins a transaction that stays
// open until Commit, Rollback, or Close. Close never closes the pool.
type Local struct {
	db         *sql.DB
	isolation  sql.IsolationLevel
	autoCommit bool
	tx         *sql.Tx
}

// NewLocal returns a transaction over db. isolation applies when the
// lazy transaction begins; sql.LevelDefault defers to the driver.
func NewLocal(db *sql.DB, isolation sql.IsolationLevel, autoCommit bool) *Local {
	return &Local{db: db, isolation: isolation, autoCommit: autoCommit}
}

func (t *Local) DB(ctx context.Context) (DBTX, error) {
	if t.autoCommit {
		return t.db, nil
	}
	if t.tx == nil {
		tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: t.isolation})
		if err != nil {
			return nil, fmt.Errorf("transaction: begin: %w", err)
		}
		t.tx = tx
	}
	return t.tx, nil
}

func (t *Local) Commit() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Commit()
	t.tx = nil
	return err
}

func (t *Local) Rollback() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	return err
}

// Close rolls back any transaction still open. The pool stays open for
// the next session.
func (t *Local) Close() error {
	return t.Rollback()
}

var _ Transaction = (*Local)(nil)

// LocalFactory builds Local transactions.
type LocalFactory struct{}

func (LocalFactory) NewTransaction(db *sql.DB, isolation sql.IsolationLevel, autoCommit bool) Transaction {
	return NewLocal(db, isolation, autoCommit)
}

var _ Factory = LocalFactory{}
