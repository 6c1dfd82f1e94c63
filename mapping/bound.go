package mapping

import (
	"fmt"
	"strings"

	"github.com/electwix/db-mapper/internal/meta"
)

// ParameterMode tells the executor which direction a parameter flows.
type ParameterMode uint8

const (
	ModeIn ParameterMode = iota
	ModeOut
	ModeInOut
)

func (m ParameterMode) String() string {
	switch m {
	case ModeOut:
		return "OUT"
	case ModeInOut:
		return "INOUT"
	default:
		return "IN"
	}
}

// ParseParameterMode maps a #{...,mode=...} option to a ParameterMode.
// Empty selects IN.
func ParseParameterMode(s string) (ParameterMode, error) {
	switch s {
	case "", "in", "IN":
		return ModeIn, nil
	case "out", "OUT":
		return ModeOut, nil
	case "inout", "INOUT":
		return ModeInOut, nil
	default:
		return ModeIn, fmt.Errorf("mapping: unknown parameter mode %q (want in, out, or inout)", s)
	}
}

// ParameterMapping describes one placeholder of a bound statement, in
// order of appearance.
type ParameterMapping struct {
	// Property is the parameter path, e.g. "user.id" or a foreach-bound
	// name.
	Property string
	// Mode is the parameter direction; only IN values contribute to
	// fingerprints and driver arguments.
	Mode ParameterMode
	// SQLType is an optional driver type hint from the mapper file.
	SQLType string
}

// BoundStatement is the executable form of a statement: final SQL with
// dialect placeholders, ordered parameter mappings, the parameter object,
// and any values bound during dynamic evaluation (loop items, generated
// bindings) that the parameter object does not carry.
type BoundStatement struct {
	SQL      string
	Mappings []ParameterMapping
	Param    any

	additional map[string]any
}

// NewBoundStatement builds the bound form. The additional-bindings map
// starts empty.
func NewBoundStatement(sql string, mappings []ParameterMapping, param any) *BoundStatement {
	return &BoundStatement{SQL: sql, Mappings: mappings, Param: param}
}

// HasAdditional reports whether the root segment of path was bound during
// dynamic evaluation. "item.id" is additional when "item" was bound by a
// loop, even though the map holds no "item.id" entry.
func (b *BoundStatement) HasAdditional(path string) bool {
	root, _, _ := strings.Cut(path, ".")
	_, ok := b.additional[root]
	return ok
}

// Additional resolves path against the dynamically bound values,
// descending into the bound value for dotted paths.
func (b *BoundStatement) Additional(path string) (any, bool) {
	if b.additional == nil {
		return nil, false
	}
	return meta.Get(b.additional, path)
}

// SetAdditional records a value bound outside the parameter object.
func (b *BoundStatement) SetAdditional(name string, value any) {
	if b.additional == nil {
		b.additional = make(map[string]any)
	}
	b.additional[name] = value
}
