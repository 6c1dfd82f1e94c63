package scripting

import (
	"github.com/electwix/db-mapper/mapping"
)

// StaticSQLSource holds SQL whose parameter tokens were resolved ahead
// of time; binding only attaches the parameter object.
type StaticSQLSource struct {
	sql      string
	mappings []mapping.ParameterMapping
}

var _ mapping.SQLSource = (*StaticSQLSource)(nil)

func NewStaticSQLSource(sql string, mappings []mapping.ParameterMapping) *StaticSQLSource {
	return &StaticSQLSource{sql: sql, mappings: mappings}
}

func (s *StaticSQLSource) BoundStatement(param any) (*mapping.BoundStatement, error) {
	return mapping.NewBoundStatement(s.sql, s.mappings, param), nil
}

// NewRawSQLSource parses the parameter tokens of a statement with no
// dynamic content once, at build time.
func NewRawSQLSource(sqlText string, dialect mapping.Dialect) (*StaticSQLSource, error) {
	sql, mappings, err := ParseStatement(sqlText, dialect)
	if err != nil {
		return nil, err
	}
	return NewStaticSQLSource(sql, mappings), nil
}

// DynamicSQLSource re-evaluates its node tree on every bind, so
// conditions, loops, and inline substitutions see the current parameter
// object. Bindings created during evaluation travel with the bound
// statement as additional values.
type DynamicSQLSource struct {
	root    SQLNode
	dialect mapping.Dialect
}

var _ mapping.SQLSource = (*DynamicSQLSource)(nil)

func NewDynamicSQLSource(root SQLNode, dialect mapping.Dialect) *DynamicSQLSource {
	return &DynamicSQLSource{root: root, dialect: dialect}
}

func (s *DynamicSQLSource) BoundStatement(param any) (*mapping.BoundStatement, error) {
	ctx := NewDynamicContext(param)
	if _, err := s.root.Apply(ctx); err != nil {
		return nil, err
	}
	sql, mappings, err := ParseStatement(ctx.SQL(), s.dialect)
	if err != nil {
		return nil, err
	}
	bound := mapping.NewBoundStatement(sql, mappings, param)
	for name, value := range ctx.Bindings() {
		bound.SetAdditional(name, value)
	}
	return bound, nil
}
