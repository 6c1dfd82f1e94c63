// Package scripting assembles and binds SQL statements. Static sources
// resolve their parameter tokens once at build time; dynamic sources
// re-evaluate a node tree (conditions, loops, trims, inline
// substitutions) against each parameter object.
package scripting

import (
	"strings"

	"github.com/electwix/db-mapper/internal/meta"
)

// ParamKey is the binding name under which the whole parameter object is
// reachable from test expressions and tokens.
const ParamKey = "_parameter"

// DynamicContext accumulates the SQL of one dynamic evaluation along
// with the bindings created while evaluating (loop items, bind nodes).
// It is single-use and not safe for concurrent use.
type DynamicContext struct {
	param    any
	bindings map[string]any
	parts    []string
	unique   int
	filter   func(string) (string, error)
	pending  string
}

// NewDynamicContext starts an evaluation against param.
func NewDynamicContext(param any) *DynamicContext {
	return &DynamicContext{
		param:    param,
		bindings: map[string]any{ParamKey: param},
	}
}

// Bind records a named value visible to expressions and parameter
// tokens for the rest of the evaluation.
func (c *DynamicContext) Bind(name string, value any) {
	c.bindings[name] = value
}

// Binding resolves path, checking explicit bindings before descending
// into the parameter object. For dotted paths whose root is a binding,
// the remainder is resolved inside the bound value.
func (c *DynamicContext) Binding(path string) (any, bool) {
	if v, ok := c.bindings[path]; ok {
		return v, true
	}
	first, rest, dotted := strings.Cut(path, ".")
	if dotted {
		if root, ok := c.bindings[first]; ok {
			return meta.Get(root, rest)
		}
	}
	return meta.Get(c.param, path)
}

// Bindings exposes every binding made during evaluation, including the
// parameter object itself under ParamKey.
func (c *DynamicContext) Bindings() map[string]any {
	return c.bindings
}

// AppendSQL adds a fragment to the statement under construction. Blank
// fragments are dropped; the remaining fragments are joined with single
// spaces by SQL.
func (c *DynamicContext) AppendSQL(fragment string) error {
	if c.filter != nil {
		out, err := c.filter(fragment)
		if err != nil {
			return err
		}
		fragment = out
	}
	fragment = strings.TrimSpace(fragment)
	if fragment != "" {
		if c.pending != "" {
			c.parts = append(c.parts, c.pending)
			c.pending = ""
		}
		c.parts = append(c.parts, fragment)
	}
	return nil
}

// SQL returns the accumulated statement text.
func (c *DynamicContext) SQL() string {
	return strings.Join(c.parts, " ")
}

// NextUnique hands out evaluation-unique numbers for generated binding
// names, so nested loops never collide.
func (c *DynamicContext) NextUnique() int {
	n := c.unique
	c.unique++
	return n
}

// pushPrefix schedules text to be emitted just before the next
// non-blank fragment. A prefix nothing consumes is dropped on restore,
// so loop separators never dangle after elements that emitted no text.
func (c *DynamicContext) pushPrefix(prefix string) (restore func()) {
	prev := c.pending
	c.pending = prefix
	return func() { c.pending = prev }
}

// pushFilter installs a fragment rewriter for the duration of a node's
// body. Filters stack: inner rewrites run before outer ones, which is
// what nested loops need.
func (c *DynamicContext) pushFilter(f func(string) (string, error)) (restore func()) {
	prev := c.filter
	if prev != nil {
		inner := f
		f = func(s string) (string, error) {
			out, err := inner(s)
			if err != nil {
				return "", err
			}
			return prev(out)
		}
	}
	c.filter = f
	return func() { c.filter = prev }
}

// capture evaluates node into a detached buffer and returns its text
// without committing it, so wrappers like trim can rework it first.
func (c *DynamicContext) capture(node SQLNode) (text string, applied bool, err error) {
	mark := len(c.parts)
	applied, err = node.Apply(c)
	if err != nil {
		return "", false, err
	}
	text = strings.Join(c.parts[mark:], " ")
	c.parts = c.parts[:mark]
	return text, applied, nil
}
