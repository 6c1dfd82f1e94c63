package mapping

import "math"

// NoRowLimit is the Limit of DefaultBounds: effectively unbounded.
const NoRowLimit = math.MaxInt32

// RowBounds requests a logical page of a result: skip Offset rows, then
// take at most Limit. Paging is applied while scanning rows, not pushed
// into the SQL, so the same statement text serves every page and the
// bounds participate in the cache fingerprint instead.
type RowBounds struct {
	Offset int
	Limit  int
}

// DefaultBounds requests the whole result.
var DefaultBounds = RowBounds{Offset: 0, Limit: NoRowLimit}

// IsDefault reports whether the bounds request the whole result.
func (b RowBounds) IsDefault() bool {
	return b.Offset == 0 && b.Limit == NoRowLimit
}
