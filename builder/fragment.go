package builder

import (
	"errors"
	"fmt"

	"github.com/electwix/db-mapper/scripting"
	"github.com/electwix/db-mapper/scripting/expr"
)

// fragmentConfig is one node of a statement's dynamic SQL tree. A
// fragment declares exactly one shape: plain sql text, a bind, a where
// or set block, a trim, a choose (when list plus optional otherwise), or
// a foreach over sql text. An optional test guards any shape.
type fragmentConfig struct {
	SQL       string           `toml:"sql" yaml:"sql"`
	Test      string           `toml:"test" yaml:"test"`
	Bind      string           `toml:"bind" yaml:"bind"`
	Value     string           `toml:"value" yaml:"value"`
	Foreach   *foreachConfig   `toml:"foreach" yaml:"foreach"`
	Where     []fragmentConfig `toml:"where" yaml:"where"`
	Set       []fragmentConfig `toml:"set" yaml:"set"`
	Trim      *trimConfig      `toml:"trim" yaml:"trim"`
	When      []fragmentConfig `toml:"when" yaml:"when"`
	Otherwise *fragmentConfig  `toml:"otherwise" yaml:"otherwise"`
}

type foreachConfig struct {
	Collection string `toml:"collection" yaml:"collection"`
	Item       string `toml:"item" yaml:"item"`
	Index      string `toml:"index" yaml:"index"`
	Open       string `toml:"open" yaml:"open"`
	Close      string `toml:"close" yaml:"close"`
	Separator  string `toml:"separator" yaml:"separator"`
}

type trimConfig struct {
	Prefix          string           `toml:"prefix" yaml:"prefix"`
	Suffix          string           `toml:"suffix" yaml:"suffix"`
	PrefixOverrides []string         `toml:"prefix_overrides" yaml:"prefix_overrides"`
	SuffixOverrides []string         `toml:"suffix_overrides" yaml:"suffix_overrides"`
	Body            []fragmentConfig `toml:"fragment" yaml:"fragment"`
}

// buildFragments assembles an ordered fragment list into one node.
func buildFragments(fragments []fragmentConfig) (scripting.SQLNode, error) {
	nodes := make([]scripting.SQLNode, 0, len(fragments))
	for i, f := range fragments {
		node, err := buildFragment(f)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", i+1, err)
		}
		nodes = append(nodes, node)
	}
	return scripting.NewMixedNode(nodes...), nil
}

func buildFragment(f fragmentConfig) (scripting.SQLNode, error) {
	node, err := buildShape(f)
	if err != nil {
		return nil, err
	}
	if f.Test == "" {
		return node, nil
	}
	test, err := expr.Compile(f.Test)
	if err != nil {
		return nil, fmt.Errorf("test %q: %w", f.Test, err)
	}
	return scripting.NewIfNode(test, node), nil
}

// buildShape assembles the fragment's payload, ignoring any test guard.
func buildShape(f fragmentConfig) (scripting.SQLNode, error) {
	if err := validateShape(f); err != nil {
		return nil, err
	}

	switch {
	case f.Bind != "":
		value, err := expr.Compile(f.Value)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", f.Bind, err)
		}
		return scripting.NewBindNode(f.Bind, value), nil

	case len(f.Where) > 0:
		body, err := buildFragments(f.Where)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		return scripting.NewWhereNode(body), nil

	case len(f.Set) > 0:
		body, err := buildFragments(f.Set)
		if err != nil {
			return nil, fmt.Errorf("set: %w", err)
		}
		return scripting.NewSetNode(body), nil

	case f.Trim != nil:
		body, err := buildFragments(f.Trim.Body)
		if err != nil {
			return nil, fmt.Errorf("trim: %w", err)
		}
		return &scripting.TrimNode{
			Body:            body,
			Prefix:          f.Trim.Prefix,
			Suffix:          f.Trim.Suffix,
			PrefixOverrides: f.Trim.PrefixOverrides,
			SuffixOverrides: f.Trim.SuffixOverrides,
		}, nil

	case len(f.When) > 0 || f.Otherwise != nil:
		return buildChoose(f)

	case f.Foreach != nil:
		if f.Foreach.Collection == "" {
			return nil, errors.New("foreach requires a collection")
		}
		if f.SQL == "" {
			return nil, errors.New("foreach requires sql body text")
		}
		return &scripting.ForeachNode{
			Collection: f.Foreach.Collection,
			Item:       f.Foreach.Item,
			Index:      f.Foreach.Index,
			Open:       f.Foreach.Open,
			Close:      f.Foreach.Close,
			Separator:  f.Foreach.Separator,
			Body:       scripting.NewStaticTextNode(f.SQL),
		}, nil

	case f.SQL != "":
		return scripting.NewStaticTextNode(f.SQL), nil

	default:
		return nil, errors.New("fragment has no content")
	}
}

func buildChoose(f fragmentConfig) (scripting.SQLNode, error) {
	if len(f.When) == 0 {
		return nil, errors.New("otherwise requires at least one when")
	}

	whens := make([]*scripting.IfNode, 0, len(f.When))
	for i, w := range f.When {
		if w.Test == "" {
			return nil, fmt.Errorf("when %d requires a test", i+1)
		}
		test, err := expr.Compile(w.Test)
		if err != nil {
			return nil, fmt.Errorf("when %d test %q: %w", i+1, w.Test, err)
		}
		body, err := buildShape(w)
		if err != nil {
			return nil, fmt.Errorf("when %d: %w", i+1, err)
		}
		whens = append(whens, scripting.NewIfNode(test, body))
	}

	var otherwise scripting.SQLNode
	if f.Otherwise != nil {
		node, err := buildFragment(*f.Otherwise)
		if err != nil {
			return nil, fmt.Errorf("otherwise: %w", err)
		}
		otherwise = node
	}
	return scripting.NewChooseNode(whens, otherwise), nil
}

// validateShape rejects fragments mixing more than one payload kind.
// Plain sql is a shape of its own except under foreach, where it is the
// loop body.
func validateShape(f fragmentConfig) error {
	shapes := make([]string, 0, 2)
	if f.Bind != "" {
		shapes = append(shapes, "bind")
	}
	if len(f.Where) > 0 {
		shapes = append(shapes, "where")
	}
	if len(f.Set) > 0 {
		shapes = append(shapes, "set")
	}
	if f.Trim != nil {
		shapes = append(shapes, "trim")
	}
	if len(f.When) > 0 || f.Otherwise != nil {
		shapes = append(shapes, "choose")
	}
	if f.Foreach != nil {
		shapes = append(shapes, "foreach")
	}
	if len(shapes) > 1 {
		return fmt.Errorf("fragment mixes %v", shapes)
	}
	if len(shapes) == 1 && shapes[0] != "foreach" && f.SQL != "" {
		return fmt.Errorf("fragment mixes [%s sql]", shapes[0])
	}
	if f.Bind != "" && f.Value == "" {
		return errors.New("bind requires a value expression")
	}
	if f.Bind == "" && f.Value != "" {
		return errors.New("value requires a bind name")
	}
	return nil
}
