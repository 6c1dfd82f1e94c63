package scripting

import (
	"fmt"
	"strings"

	"github.com/electwix/db-mapper/mapping"
)

// parseParameterToken splits a #{...} body into a property path plus
// options. Supported options are mode (in, out, inout) and type or
// sqlType, a driver type hint. Anything else is a mapper file mistake
// and fails loudly.
func parseParameterToken(content string) (mapping.ParameterMapping, error) {
	parts := strings.Split(content, ",")
	property := strings.TrimSpace(parts[0])
	if property == "" {
		return mapping.ParameterMapping{}, fmt.Errorf("scripting: parameter token %q has no property", content)
	}
	pm := mapping.ParameterMapping{Property: property}
	for _, opt := range parts[1:] {
		key, value, found := strings.Cut(opt, "=")
		if !found {
			return mapping.ParameterMapping{}, fmt.Errorf("scripting: malformed option %q in parameter token %q", strings.TrimSpace(opt), content)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "mode":
			mode, err := mapping.ParseParameterMode(value)
			if err != nil {
				return mapping.ParameterMapping{}, fmt.Errorf("scripting: parameter token %q: %w", content, err)
			}
			pm.Mode = mode
		case "type", "sqlType":
			pm.SQLType = value
		default:
			return mapping.ParameterMapping{}, fmt.Errorf("scripting: unknown option %q in parameter token %q", key, content)
		}
	}
	return pm, nil
}

// ParseStatement rewrites the #{...} parameter tokens of sqlText into
// dialect placeholders and returns the final SQL with the parameter
// mappings in placeholder order.
func ParseStatement(sqlText string, dialect mapping.Dialect) (string, []mapping.ParameterMapping, error) {
	var mappings []mapping.ParameterMapping
	parser := NewTokenParser("#{", "}", func(content string) (string, error) {
		pm, err := parseParameterToken(content)
		if err != nil {
			return "", err
		}
		mappings = append(mappings, pm)
		return dialect.Placeholder(len(mappings)), nil
	})
	sql, err := parser.Parse(sqlText)
	if err != nil {
		return "", nil, err
	}
	return sql, mappings, nil
}
