package executor

import (
	"database/sql"
	"fmt"

	"github.com/electwix/db-mapper/internal/meta"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/types"
)

// resolveParameterValue finds the value behind one parameter mapping:
// additional bindings made during dynamic evaluation win, then a
// parameter object the registry handles directly (a bare scalar), then
// a named property of the parameter object. Unresolvable properties
// bind NULL, matching how absent map keys behave.
func resolveParameterValue(reg *types.Registry, bound *mapping.BoundStatement, property string) any {
	if bound.HasAdditional(property) {
		v, _ := bound.Additional(property)
		return v
	}
	if bound.Param == nil {
		return nil
	}
	if reg.Has(bound.Param) {
		return bound.Param
	}
	v, _ := meta.Get(bound.Param, property)
	return v
}

// bindArgs converts a bound statement's IN parameters to driver
// arguments in placeholder order.
func bindArgs(reg *types.Registry, bound *mapping.BoundStatement) ([]any, error) {
	if len(bound.Mappings) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(bound.Mappings))
	for _, pm := range bound.Mappings {
		if pm.Mode == mapping.ModeOut {
			continue
		}
		value := resolveParameterValue(reg, bound, pm.Property)
		arg, err := reg.ToDriver(value)
		if err != nil {
			return nil, fmt.Errorf("executor: bind parameter %q: %w", pm.Property, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

// scanRows drains rows into map-shaped results, applying bounds
// in-memory: the first Offset rows are skipped without scanning and the
// scan stops after Limit rows. With a handler, rows stream to it and
// the returned slice is nil.
func scanRows(reg *types.Registry, rows *sql.Rows, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("executor: read columns: %w", err)
	}
	var out []any
	skipped, taken := 0, 0
	for rows.Next() {
		if skipped < bounds.Offset {
			skipped++
			continue
		}
		if taken >= bounds.Limit {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("executor: scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = reg.Normalize(values[i])
		}
		if handler != nil {
			if err := handler(row); err != nil {
				return nil, err
			}
		} else {
			out = append(out, row)
		}
		taken++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("executor: iterate rows: %w", err)
	}
	return out, nil
}
