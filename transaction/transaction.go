// Package transaction wraps database/sql handles behind the Transaction
// contract the executor drives: statements run against DB(), and commit,
// rollback, and close follow the session lifecycle.
package transaction

import (
	"context"
	"database/sql"
)

// DBTX is the statement surface shared by *sql.DB and *sql.Tx, so
// executors run the same way inside and outside an explicit transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// Transaction hands the executor a statement handle and carries the
// commit/rollback/close lifecycle behind it.
type Transaction interface {
	// DB returns the handle statements execute against, opening the
	// underlying transaction lazily when one is needed.
	DB(ctx context.Context) (DBTX, error)
	Commit() error
	Rollback() error
	// Close abandons any open transaction without committing it.
	Close() error
}

// Factory builds transactions for an environment's database handle.
type Factory interface {
	NewTransaction(db *sql.DB, isolation sql.IsolationLevel, autoCommit bool) Transaction
}
