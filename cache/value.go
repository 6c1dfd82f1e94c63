package cache

// Value is the tagged payload stored in a cache. Alongside ordinary data it
// distinguishes the two sentinels the executor relies on: the in-flight
// placeholder published while a statement runs, and the null marker written
// for a confirmed empty or consumed result. Absence is the third state and
// is reported by the bool return of Cache.Get, not by a Value kind.
type Value struct {
	kind valueKind
	data any
}

type valueKind uint8

const (
	kindData valueKind = iota
	kindPlaceholder
	kindNull
)

// ValueOf wraps result data, typically the ordered row slice of a query.
func ValueOf(data any) Value {
	return Value{kind: kindData, data: data}
}

// Placeholder marks a fingerprint whose statement is currently executing.
func Placeholder() Value {
	return Value{kind: kindPlaceholder}
}

// Null marks a fingerprint that resolved without reusable data.
func Null() Value {
	return Value{kind: kindNull}
}

// IsPlaceholder reports whether the value is the in-flight marker.
func (v Value) IsPlaceholder() bool { return v.kind == kindPlaceholder }

// IsNull reports whether the value is the null marker.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Data returns the wrapped payload; nil for both sentinels.
func (v Value) Data() any { return v.data }

// Rows returns the payload as a row slice, or nil when the payload is a
// sentinel or not row data.
func (v Value) Rows() []any {
	rows, _ := v.data.([]any)
	return rows
}

func (v Value) String() string {
	switch v.kind {
	case kindPlaceholder:
		return "<pending>"
	case kindNull:
		return "<null>"
	default:
		return "<data>"
	}
}
