// Package expr compiles and evaluates the boolean test expressions used
// by conditional SQL fragments. The language covers comparisons,
// negation, and/or conjunctions, literals (numbers, quoted strings,
// true, false, nil), and dotted property paths resolved through a
// caller-supplied binder.
package expr

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

//nolint:govet // Participle struct tags are DSL, not reflect tags
type orExpr struct {
	Left *andExpr  `@@`
	Rest []*orTail `@@*`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type orTail struct {
	Right *andExpr `("or" | "||") @@`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type andExpr struct {
	Left *comparison `@@`
	Rest []*andTail  `@@*`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type andTail struct {
	Right *comparison `("and" | "&&") @@`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type comparison struct {
	Left *unary    `@@`
	Rest *compTail `@@?`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type compTail struct {
	Op    string `@("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Right *unary `@@`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type unary struct {
	Not  *unary   `  "!" @@`
	Prim *primary `| @@`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type primary struct {
	Number *string `  @Number`
	Str    *string `| @String`
	Sub    *orExpr `| "(" @@ ")"`
	Path   *string `| @Path`
}

//nolint:govet // Participle DSL uses unkeyed fields
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`},
	{Name: "Path", Pattern: `[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|&&|\|\||[<>!()]`},
})

var exprParser = mustBuildParser()

func mustBuildParser() *participle.Parser[orExpr] {
	parser, err := participle.Build[orExpr](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to build expression parser: %v", err))
	}
	return parser
}

// Binder resolves a property path to its bound value. The second result
// reports whether the path is bound at all; unbound paths evaluate to
// nil rather than failing, so "name != nil" works for absent bindings.
type Binder func(path string) (any, bool)

// Program is a compiled test expression, safe for concurrent evaluation.
type Program struct {
	src  string
	root *orExpr
}

// Compile parses src into a reusable Program.
func Compile(src string) (*Program, error) {
	root, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("expr: parse %q: %w", src, err)
	}
	return &Program{src: src, root: root}, nil
}

// MustCompile is Compile for expressions known to be valid at build time.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string { return p.src }

func (p *Program) String() string { return p.src }

// Eval evaluates the program against resolve and returns the resulting
// value: a bool for logical or comparison expressions, otherwise the
// operand value itself.
func (p *Program) Eval(resolve Binder) (any, error) {
	return evalOr(p.root, resolve)
}

// EvalBool evaluates the program and reduces the result to a truth
// value: nil and false are false, numbers are true when non-zero, and
// every other non-nil value is true.
func (p *Program) EvalBool(resolve Binder) (bool, error) {
	v, err := p.Eval(resolve)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}
