// Package config holds the runtime registry a session factory is built
// from: the database environment, cache regions, mapped statements, and
// the settings that shape executor behavior. The builder package
// populates it from mapper files; it can also be assembled directly in
// code.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/electwix/db-mapper/cache"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
	"github.com/electwix/db-mapper/types"
)

// ErrStatementNotFound reports a lookup of an unregistered statement id.
var ErrStatementNotFound = errors.New("config: statement not found")

// ExecutorType selects the statement execution strategy of a session.
type ExecutorType uint8

const (
	// ExecSimple prepares each statement per call.
	ExecSimple ExecutorType = iota
	// ExecReuse keeps prepared statements open, keyed by SQL text.
	ExecReuse
	// ExecBatch queues updates and executes them on flush.
	ExecBatch
)

func (e ExecutorType) String() string {
	switch e {
	case ExecReuse:
		return "reuse"
	case ExecBatch:
		return "batch"
	default:
		return "simple"
	}
}

// ParseExecutorType maps a settings string to an ExecutorType. Empty
// selects simple.
func ParseExecutorType(s string) (ExecutorType, error) {
	switch s {
	case "", "simple":
		return ExecSimple, nil
	case "reuse":
		return ExecReuse, nil
	case "batch":
		return ExecBatch, nil
	default:
		return ExecSimple, fmt.Errorf("config: unknown executor type %q (want simple, reuse, or batch)", s)
	}
}

// LocalCacheScope controls how long tier-1 entries live.
type LocalCacheScope uint8

const (
	// ScopeSession keeps local entries until a write, commit, rollback,
	// or explicit clear.
	ScopeSession LocalCacheScope = iota
	// ScopeStatement drops local entries as soon as the outermost query
	// finishes, leaving the local cache useful only for resolving nested
	// loads within one statement.
	ScopeStatement
)

func (s LocalCacheScope) String() string {
	if s == ScopeStatement {
		return "statement"
	}
	return "session"
}

// ParseLocalCacheScope maps a settings string to a LocalCacheScope.
// Empty selects session.
func ParseLocalCacheScope(s string) (LocalCacheScope, error) {
	switch s {
	case "", "session":
		return ScopeSession, nil
	case "statement":
		return ScopeStatement, nil
	default:
		return ScopeSession, fmt.Errorf("config: unknown local cache scope %q (want session or statement)", s)
	}
}

// Environment is the database a configuration executes against.
type Environment struct {
	// ID names the environment and, when set, is folded into every cache
	// fingerprint so two environments never share entries.
	ID string
	// DB is the connection pool statements run on.
	DB *sql.DB
	// TxFactory builds the transaction wrapper for each session.
	TxFactory transaction.Factory
	// Dialect is the placeholder style of the environment's driver.
	Dialect mapping.Dialect
}

// Config is the assembled runtime registry.
type Config struct {
	Environment Environment

	// CacheEnabled wires the shared-cache orchestrator around executors.
	// Defaults to true.
	CacheEnabled bool
	// LocalCacheScope controls tier-1 lifetime. Defaults to ScopeSession.
	LocalCacheScope LocalCacheScope
	// DefaultExecutorType is used when a session is opened without one.
	DefaultExecutorType ExecutorType
	// DefaultStatementTimeout bounds statements that declare no timeout.
	// Zero means no bound beyond the caller's ctx.
	DefaultStatementTimeout time.Duration
	// Logger receives component logs; nil falls back to the default
	// stderr logger.
	Logger *slog.Logger
	// Types converts parameter values to driver arguments.
	Types *types.Registry

	statements map[string]*mapping.MappedStatement
	caches     map[string]cache.Cache
}

// New returns a Config with defaults: caching enabled, session-scoped
// local cache, simple executor, and the built-in type registry.
func New() *Config {
	return &Config{
		CacheEnabled: true,
		Types:        types.NewRegistry(),
		statements:   make(map[string]*mapping.MappedStatement),
		caches:       make(map[string]cache.Cache),
	}
}

// AddStatement registers ms. Statement ids are unique.
func (c *Config) AddStatement(ms *mapping.MappedStatement) error {
	if ms == nil || ms.ID == "" {
		return fmt.Errorf("config: statement requires an id")
	}
	if _, ok := c.statements[ms.ID]; ok {
		return fmt.Errorf("config: statement %s already registered", ms.ID)
	}
	c.statements[ms.ID] = ms
	return nil
}

// Statement resolves a registered statement by id.
func (c *Config) Statement(id string) (*mapping.MappedStatement, error) {
	ms, ok := c.statements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStatementNotFound, id)
	}
	return ms, nil
}

// HasStatement reports whether id is registered.
func (c *Config) HasStatement(id string) bool {
	_, ok := c.statements[id]
	return ok
}

// StatementIDs lists registered statement ids in sorted order.
func (c *Config) StatementIDs() []string {
	ids := make([]string, 0, len(c.statements))
	for id := range c.statements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddCache registers a shared region under its own id.
func (c *Config) AddCache(region cache.Cache) error {
	if region == nil || region.ID() == "" {
		return fmt.Errorf("config: cache requires an id")
	}
	if _, ok := c.caches[region.ID()]; ok {
		return fmt.Errorf("config: cache %s already registered", region.ID())
	}
	c.caches[region.ID()] = region
	return nil
}

// Cache resolves a shared region by id.
func (c *Config) Cache(id string) (cache.Cache, bool) {
	region, ok := c.caches[id]
	return region, ok
}

// CacheIDs lists registered region ids in sorted order.
func (c *Config) CacheIDs() []string {
	ids := make([]string, 0, len(c.caches))
	for id := range c.caches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
