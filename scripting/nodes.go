package scripting

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/electwix/db-mapper/scripting/expr"
)

// SQLNode is one element of a dynamic statement tree. Apply writes the
// node's contribution into ctx and reports whether it contributed.
type SQLNode interface {
	Apply(ctx *DynamicContext) (bool, error)
}

// StaticTextNode emits literal SQL text. ${...} references are
// substituted inline from the current bindings before the text lands in
// the statement; unbound references become empty text.
type StaticTextNode struct {
	Text string
}

func NewStaticTextNode(text string) *StaticTextNode {
	return &StaticTextNode{Text: text}
}

func (n *StaticTextNode) Apply(ctx *DynamicContext) (bool, error) {
	text := n.Text
	if strings.Contains(text, "${") {
		sub := NewTokenParser("${", "}", func(content string) (string, error) {
			v, ok := ctx.Binding(strings.TrimSpace(content))
			if !ok || v == nil {
				return "", nil
			}
			return fmt.Sprintf("%v", v), nil
		})
		out, err := sub.Parse(text)
		if err != nil {
			return false, err
		}
		text = out
	}
	if err := ctx.AppendSQL(text); err != nil {
		return false, err
	}
	return true, nil
}

// MixedNode applies its children in order.
type MixedNode struct {
	Contents []SQLNode
}

func NewMixedNode(contents ...SQLNode) *MixedNode {
	return &MixedNode{Contents: contents}
}

func (n *MixedNode) Apply(ctx *DynamicContext) (bool, error) {
	for _, child := range n.Contents {
		if _, err := child.Apply(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// IfNode applies its body only when the test expression is true against
// the current bindings.
type IfNode struct {
	Test *expr.Program
	Body SQLNode
}

func NewIfNode(test *expr.Program, body SQLNode) *IfNode {
	return &IfNode{Test: test, Body: body}
}

func (n *IfNode) Apply(ctx *DynamicContext) (bool, error) {
	ok, err := n.Test.EvalBool(ctx.Binding)
	if err != nil {
		return false, fmt.Errorf("scripting: evaluate %q: %w", n.Test.Source(), err)
	}
	if !ok {
		return false, nil
	}
	if _, err := n.Body.Apply(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ChooseNode applies the first branch whose test passes, or the
// otherwise body when none does.
type ChooseNode struct {
	Whens     []*IfNode
	Otherwise SQLNode
}

func NewChooseNode(whens []*IfNode, otherwise SQLNode) *ChooseNode {
	return &ChooseNode{Whens: whens, Otherwise: otherwise}
}

func (n *ChooseNode) Apply(ctx *DynamicContext) (bool, error) {
	for _, when := range n.Whens {
		applied, err := when.Apply(ctx)
		if err != nil {
			return false, err
		}
		if applied {
			return true, nil
		}
	}
	if n.Otherwise != nil {
		if _, err := n.Otherwise.Apply(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// BindNode evaluates an expression once and records the result as a
// named binding for the rest of the statement.
type BindNode struct {
	Name  string
	Value *expr.Program
}

func NewBindNode(name string, value *expr.Program) *BindNode {
	return &BindNode{Name: name, Value: value}
}

func (n *BindNode) Apply(ctx *DynamicContext) (bool, error) {
	v, err := n.Value.Eval(ctx.Binding)
	if err != nil {
		return false, fmt.Errorf("scripting: bind %s: %w", n.Name, err)
	}
	ctx.Bind(n.Name, v)
	return true, nil
}

// TrimNode reworks the text its body produced: dangling connective
// keywords or separators are stripped, and a prefix/suffix is attached
// only when any text remains.
type TrimNode struct {
	Body   SQLNode
	Prefix string
	Suffix string
	// PrefixOverrides lists leading keywords removed together with the
	// whitespace that follows them.
	PrefixOverrides []string
	// SuffixOverrides lists trailing fragments removed verbatim.
	SuffixOverrides []string
}

// NewWhereNode wraps body so a leading AND or OR left behind by failed
// conditions is stripped and WHERE is prepended only when the body
// produced text.
func NewWhereNode(body SQLNode) *TrimNode {
	return &TrimNode{Body: body, Prefix: "WHERE", PrefixOverrides: []string{"AND", "OR"}}
}

// NewSetNode wraps body for UPDATE set lists: a trailing comma is
// stripped and SET is prepended only when the body produced text.
func NewSetNode(body SQLNode) *TrimNode {
	return &TrimNode{Body: body, Prefix: "SET", SuffixOverrides: []string{","}}
}

func (n *TrimNode) Apply(ctx *DynamicContext) (bool, error) {
	text, applied, err := ctx.capture(n.Body)
	if err != nil {
		return false, err
	}
	text = strings.TrimSpace(text)
	for _, kw := range n.PrefixOverrides {
		if hasKeywordPrefix(text, kw) {
			text = strings.TrimLeft(text[len(kw):], " \t\r\n")
			break
		}
	}
	for _, sep := range n.SuffixOverrides {
		if len(text) >= len(sep) && strings.EqualFold(text[len(text)-len(sep):], sep) {
			text = strings.TrimRight(text[:len(text)-len(sep)], " \t\r\n")
			break
		}
	}
	if text == "" {
		return applied, nil
	}
	if n.Prefix != "" {
		text = n.Prefix + " " + text
	}
	if n.Suffix != "" {
		text = text + " " + n.Suffix
	}
	return applied, ctx.AppendSQL(text)
}

// hasKeywordPrefix reports whether text starts with kw as a whole word,
// case-insensitively.
func hasKeywordPrefix(text, kw string) bool {
	if len(text) <= len(kw) || !strings.EqualFold(text[:len(kw)], kw) {
		return false
	}
	switch text[len(kw)] {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// ForeachNode repeats its body once per element of a bound slice or
// array. Each pass binds the element (and optionally its index) under a
// generated name and rewrites the body's parameter tokens to reference
// it, so every placeholder resolves to its own element at bind time.
type ForeachNode struct {
	Collection string
	Item       string
	Index      string
	Open       string
	Close      string
	Separator  string
	Body       SQLNode
}

func (n *ForeachNode) Apply(ctx *DynamicContext) (bool, error) {
	raw, ok := ctx.Binding(n.Collection)
	if !ok {
		return false, fmt.Errorf("scripting: foreach collection %q is not bound", n.Collection)
	}
	if raw == nil {
		return false, fmt.Errorf("scripting: foreach collection %q is nil", n.Collection)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, fmt.Errorf("scripting: foreach collection %q is %T, want slice or array", n.Collection, raw)
	}
	if rv.Len() == 0 {
		return true, nil
	}
	if n.Open != "" {
		if err := ctx.AppendSQL(n.Open); err != nil {
			return false, err
		}
	}
	for i := 0; i < rv.Len(); i++ {
		unique := ctx.NextUnique()
		element := rv.Index(i).Interface()
		itemName := loopBindingName(n.Item, unique)
		// The plain name serves nested nodes and test expressions; the
		// generated name survives until bind time, one per element.
		ctx.Bind(n.Item, element)
		ctx.Bind(itemName, element)
		var indexName string
		if n.Index != "" {
			indexName = loopBindingName(n.Index, unique)
			ctx.Bind(n.Index, i)
			ctx.Bind(indexName, i)
		}
		var restorePrefix func()
		if i > 0 && n.Separator != "" {
			restorePrefix = ctx.pushPrefix(n.Separator)
		}
		restoreFilter := ctx.pushFilter(n.itemizeTokens(itemName, indexName))
		_, err := n.Body.Apply(ctx)
		restoreFilter()
		if restorePrefix != nil {
			restorePrefix()
		}
		if err != nil {
			return false, err
		}
	}
	if n.Close != "" {
		if err := ctx.AppendSQL(n.Close); err != nil {
			return false, err
		}
	}
	return true, nil
}

// itemizeTokens rewrites #{item...} and #{index...} references inside a
// body fragment to the generated per-element binding names.
func (n *ForeachNode) itemizeTokens(itemName, indexName string) func(string) (string, error) {
	parser := NewTokenParser("#{", "}", func(content string) (string, error) {
		out := rewriteLeading(content, n.Item, itemName)
		if n.Index != "" {
			out = rewriteLeading(out, n.Index, indexName)
		}
		return "#{" + out + "}", nil
	})
	return parser.Parse
}

// rewriteLeading replaces name at the head of a token body with
// replacement, but only when it stands alone there: followed by a path
// separator, an option delimiter, whitespace, or the end of the body.
func rewriteLeading(content, name, replacement string) string {
	trimmed := strings.TrimLeft(content, " \t")
	if !strings.HasPrefix(trimmed, name) {
		return content
	}
	rest := trimmed[len(name):]
	if rest != "" {
		switch rest[0] {
		case '.', ',', ':', ' ', '\t':
		default:
			return content
		}
	}
	return replacement + rest
}

func loopBindingName(name string, unique int) string {
	return fmt.Sprintf("__frch_%s_%d", name, unique)
}
