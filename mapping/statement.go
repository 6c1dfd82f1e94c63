// Package mapping defines the statement model shared by the session,
// executor, scripting, and builder layers: mapped statements, their bound
// form with ordered parameter mappings, row bounds, and dialect
// placeholder styles.
package mapping

import (
	"fmt"
	"time"

	"github.com/electwix/db-mapper/cache"
)

// CommandType classifies what a statement does to the database.
type CommandType uint8

const (
	CommandUnknown CommandType = iota
	CommandSelect
	CommandInsert
	CommandUpdate
	CommandDelete
)

func (c CommandType) String() string {
	switch c {
	case CommandSelect:
		return "select"
	case CommandInsert:
		return "insert"
	case CommandUpdate:
		return "update"
	case CommandDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseCommandType maps a mapper-file command string to a CommandType.
func ParseCommandType(s string) (CommandType, error) {
	switch s {
	case "select":
		return CommandSelect, nil
	case "insert":
		return CommandInsert, nil
	case "update":
		return CommandUpdate, nil
	case "delete":
		return CommandDelete, nil
	default:
		return CommandUnknown, fmt.Errorf("mapping: unknown command %q (want select, insert, update, or delete)", s)
	}
}

// StatementType selects how the statement reaches the driver.
type StatementType uint8

const (
	// StatementPrepared executes through a prepared statement. The default.
	StatementPrepared StatementType = iota
	// StatementCallable invokes a stored procedure and may carry OUT
	// parameter modes.
	StatementCallable
)

func (s StatementType) String() string {
	if s == StatementCallable {
		return "callable"
	}
	return "prepared"
}

// ParseStatementType maps a mapper-file type string to a StatementType.
// Empty selects prepared.
func ParseStatementType(s string) (StatementType, error) {
	switch s {
	case "", "prepared":
		return StatementPrepared, nil
	case "callable":
		return StatementCallable, nil
	default:
		return StatementPrepared, fmt.Errorf("mapping: unknown statement type %q (want prepared or callable)", s)
	}
}

// MappedStatement is one named statement from a mapper file, bound to its
// SQL source and optionally to a shared cache region.
type MappedStatement struct {
	// ID is the unique statement name, e.g. "users.getUser".
	ID string
	// Command classifies the statement for dirty tracking and cache
	// flushing.
	Command CommandType
	// Type selects prepared or callable execution.
	Type StatementType
	// Source produces the bound SQL for a parameter object.
	Source SQLSource
	// Cache is the shared region serving this statement, nil when the
	// statement is uncached.
	Cache cache.Cache
	// UseCache gates shared-cache reads for this statement.
	UseCache bool
	// FlushCacheRequired clears the local scope (and buffers a shared
	// clear) before the statement runs.
	FlushCacheRequired bool
	// Timeout bounds statement execution when positive.
	Timeout time.Duration
}

// BoundStatement resolves the statement's SQL against param.
func (ms *MappedStatement) BoundStatement(param any) (*BoundStatement, error) {
	if ms.Source == nil {
		return nil, fmt.Errorf("mapping: statement %s has no SQL source", ms.ID)
	}
	bound, err := ms.Source.BoundStatement(param)
	if err != nil {
		return nil, fmt.Errorf("mapping: bind statement %s: %w", ms.ID, err)
	}
	return bound, nil
}

// Dirties reports whether running the statement leaves uncommitted
// changes behind.
func (ms *MappedStatement) Dirties() bool {
	return ms.Command != CommandSelect
}
