package session

import (
	"database/sql"
	"fmt"

	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/executor"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/transaction"
)

// Factory opens sessions against one configuration.
type Factory struct {
	cfg *config.Config
}

// NewFactory wraps cfg. The configuration must outlive every session
// the factory opens.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// OpenOptions tunes one session. The zero value opens a transactional
// session with the configuration's default executor type.
type OpenOptions struct {
	// ExecutorType selects the statement strategy. The zero value (and
	// ExecSimple, which shares it) defers to the configuration default.
	ExecutorType config.ExecutorType
	// AutoCommit runs statements directly on the pool, outside an
	// explicit transaction.
	AutoCommit bool
	// Isolation applies when the session's transaction begins.
	// sql.LevelDefault defers to the driver.
	Isolation sql.IsolationLevel
	// DB, when set, runs the session on an externally managed handle.
	// Commit and rollback of that handle stay with its owner.
	DB transaction.DBTX
}

// Open starts a session with default options.
func (f *Factory) Open() (*Session, error) {
	return f.OpenWith(OpenOptions{})
}

// OpenWith starts a session with explicit options.
func (f *Factory) OpenWith(opts OpenOptions) (*Session, error) {
	kind := opts.ExecutorType
	if kind == config.ExecSimple {
		kind = f.cfg.DefaultExecutorType
	}

	var tx transaction.Transaction
	if opts.DB != nil {
		tx = transaction.NewManaged(opts.DB)
	} else {
		env := f.cfg.Environment
		if env.DB == nil {
			return nil, fmt.Errorf("session: environment %q has no database", env.ID)
		}
		factory := env.TxFactory
		if factory == nil {
			factory = transaction.LocalFactory{}
		}
		tx = factory.NewTransaction(env.DB, opts.Isolation, opts.AutoCommit)
	}

	logger := logging.FromSlog(f.cfg.Logger).With("component", "session")
	logger.Debug("session opened", "executor", kind.String(), "auto_commit", opts.AutoCommit)
	return &Session{
		cfg:        f.cfg,
		exec:       executor.New(f.cfg, tx, kind),
		logger:     logger,
		autoCommit: opts.AutoCommit,
	}, nil
}
