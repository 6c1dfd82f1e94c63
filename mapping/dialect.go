package mapping

import "strconv"

// Dialect selects the placeholder style emitted when #{} tokens are
// rewritten to driver placeholders.
type Dialect uint8

const (
	// DialectQuestion emits "?" placeholders (sqlite, mysql).
	DialectQuestion Dialect = iota
	// DialectDollar emits positional "$1" placeholders (postgres).
	DialectDollar
)

// Placeholder renders the n-th placeholder, 1-based.
func (d Dialect) Placeholder(n int) string {
	if d == DialectDollar {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// DialectForDriver maps a database/sql driver name to its placeholder
// style. Unknown drivers default to question marks.
func DialectForDriver(driver string) Dialect {
	switch driver {
	case "postgres", "pgx", "pgx/v5":
		return DialectDollar
	default:
		return DialectQuestion
	}
}
