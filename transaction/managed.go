package transaction

import (
	"context"
	"database/sql"
)

// Managed runs statements on a handle whose transaction lifecycle belongs
// to someone else, typically a *sql.Tx opened by the caller. Commit,
// Rollback, and Close are deliberate no-ops: the owner decides.
type Managed struct {
	db DBTX
}

// NewManaged wraps an externally managed handle.
func NewManaged(db DBTX) *Managed {
	return &Managed{db: db}
}

func (t *Managed) DB(context.Context) (DBTX, error) { return t.db, nil }

func (t *Managed) Commit() error   { return nil }
func (t *Managed) Rollback() error { return nil }
func (t *Managed) Close() error    { return nil }

var _ Transaction = (*Managed)(nil)

// ManagedFactory builds Managed transactions over the environment pool,
// for deployments where commit points are driven externally.
type ManagedFactory struct{}

func (ManagedFactory) NewTransaction(db *sql.DB, _ sql.IsolationLevel, _ bool) Transaction {
	return NewManaged(db)
}

var _ Factory = ManagedFactory{}
