// Package session is the user-facing API: named statements executed
// against a configuration through an executor stack, with dirty
// tracking deciding when the underlying transaction really commits or
// rolls back.
package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/executor"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/mapping"
)

// ErrTooManyResults reports a SelectOne that matched more than one row.
var ErrTooManyResults = errors.New("session: query returned more than one row")

// Session executes mapped statements. Sessions are cheap, short-lived,
// and not safe for concurrent use; open one per unit of work and close
// it.
type Session struct {
	cfg        *config.Config
	exec       executor.Executor
	logger     logging.Logger
	autoCommit bool
	dirty      bool
}

// SelectOne runs a select expected to match at most one row. No match
// returns nil; more than one row returns ErrTooManyResults.
func (s *Session) SelectOne(ctx context.Context, statementID string, param any) (any, error) {
	rows, err := s.SelectList(ctx, statementID, param)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("session: statement %s matched %d rows: %w", statementID, len(rows), ErrTooManyResults)
	}
}

// SelectList runs a select and returns every matching row.
func (s *Session) SelectList(ctx context.Context, statementID string, param any) ([]any, error) {
	return s.SelectRows(ctx, statementID, param, mapping.DefaultBounds)
}

// SelectRows runs a select with explicit row bounds.
func (s *Session) SelectRows(ctx context.Context, statementID string, param any, bounds mapping.RowBounds) ([]any, error) {
	ms, err := s.cfg.Statement(statementID)
	if err != nil {
		return nil, err
	}
	return s.exec.Query(ctx, ms, wrapCollection(param), bounds, nil)
}

// Select streams matching rows to handler instead of collecting them.
// Streamed results bypass both cache tiers.
func (s *Session) Select(ctx context.Context, statementID string, param any, bounds mapping.RowBounds, handler executor.RowHandler) error {
	ms, err := s.cfg.Statement(statementID)
	if err != nil {
		return err
	}
	_, err = s.exec.Query(ctx, ms, wrapCollection(param), bounds, handler)
	return err
}

// Insert runs an insert statement and returns the affected-row count.
func (s *Session) Insert(ctx context.Context, statementID string, param any) (int64, error) {
	return s.update(ctx, statementID, param)
}

// Update runs an update statement and returns the affected-row count.
func (s *Session) Update(ctx context.Context, statementID string, param any) (int64, error) {
	return s.update(ctx, statementID, param)
}

// Delete runs a delete statement and returns the affected-row count.
func (s *Session) Delete(ctx context.Context, statementID string, param any) (int64, error) {
	return s.update(ctx, statementID, param)
}

func (s *Session) update(ctx context.Context, statementID string, param any) (int64, error) {
	// Marked before execution: a failed write may still have touched the
	// database.
	s.dirty = true
	ms, err := s.cfg.Statement(statementID)
	if err != nil {
		return 0, err
	}
	return s.exec.Update(ctx, ms, wrapCollection(param))
}

// FlushStatements executes queued batch work and reports its results.
func (s *Session) FlushStatements(ctx context.Context) ([]executor.BatchResult, error) {
	return s.exec.FlushStatements(ctx)
}

// Commit flushes and commits. The underlying transaction commits only
// when the session is dirty and not auto-committing, or when force is
// set.
func (s *Session) Commit(ctx context.Context, force bool) error {
	if err := s.exec.Commit(ctx, s.required(force)); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Rollback discards session state. The underlying transaction rolls
// back only when the session is dirty and not auto-committing, or when
// force is set.
func (s *Session) Rollback(ctx context.Context, force bool) error {
	if err := s.exec.Rollback(ctx, s.required(force)); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// ClearCache drops the session's local cache tier.
func (s *Session) ClearCache() {
	s.exec.ClearLocalCache()
}

// Executor exposes the underlying executor for advanced callers.
func (s *Session) Executor() executor.Executor {
	return s.exec
}

// Close releases the session, rolling back uncommitted work. Close
// failures are logged by the executor; Close always returns nil.
func (s *Session) Close() error {
	if err := s.exec.Close(s.required(false)); err != nil {
		s.logger.Warn("executor close failed", "error", err)
	}
	s.dirty = false
	return nil
}

func (s *Session) required(force bool) bool {
	return (!s.autoCommit && s.dirty) || force
}

// wrapCollection makes a bare slice or array addressable from statement
// bindings: slices bind as "collection" and "list", arrays as "array".
// []byte stays as-is, it binds as a single blob value.
func wrapCollection(param any) any {
	switch reflect.ValueOf(param).Kind() {
	case reflect.Slice:
		if _, ok := param.([]byte); ok {
			return param
		}
		return map[string]any{"collection": param, "list": param}
	case reflect.Array:
		return map[string]any{"array": param}
	default:
		return param
	}
}
