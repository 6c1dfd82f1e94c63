package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func evalOr(e *orExpr, resolve Binder) (any, error) {
	left, err := evalAnd(e.Left, resolve)
	if err != nil {
		return nil, err
	}
	if len(e.Rest) == 0 {
		return left, nil
	}
	if truthy(left) {
		return true, nil
	}
	for _, tail := range e.Rest {
		v, err := evalAnd(tail.Right, resolve)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func evalAnd(e *andExpr, resolve Binder) (any, error) {
	left, err := evalComparison(e.Left, resolve)
	if err != nil {
		return nil, err
	}
	if len(e.Rest) == 0 {
		return left, nil
	}
	if !truthy(left) {
		return false, nil
	}
	for _, tail := range e.Rest {
		v, err := evalComparison(tail.Right, resolve)
		if err != nil {
			return nil, err
		}
		if !truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func evalComparison(e *comparison, resolve Binder) (any, error) {
	left, err := evalUnary(e.Left, resolve)
	if err != nil {
		return nil, err
	}
	if e.Rest == nil {
		return left, nil
	}
	right, err := evalUnary(e.Rest.Right, resolve)
	if err != nil {
		return nil, err
	}
	return compare(e.Rest.Op, left, right)
}

func evalUnary(e *unary, resolve Binder) (any, error) {
	if e.Not != nil {
		v, err := evalUnary(e.Not, resolve)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return evalPrimary(e.Prim, resolve)
}

func evalPrimary(e *primary, resolve Binder) (any, error) {
	switch {
	case e.Number != nil:
		n, err := strconv.ParseFloat(*e.Number, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: bad number %q: %w", *e.Number, err)
		}
		return n, nil
	case e.Str != nil:
		s := *e.Str
		return s[1 : len(s)-1], nil
	case e.Sub != nil:
		return evalOr(e.Sub, resolve)
	case e.Path != nil:
		switch *e.Path {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil", "null":
			return nil, nil
		}
		v, _ := resolve(*e.Path)
		return v, nil
	default:
		return nil, fmt.Errorf("expr: empty operand")
	}
}

func compare(op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	}

	if ln, lok := toNumber(left); lok {
		if rn, rok := toNumber(right); rok {
			switch op {
			case "<":
				return ln < rn, nil
			case "<=":
				return ln <= rn, nil
			case ">":
				return ln > rn, nil
			case ">=":
				return ln >= rn, nil
			}
		}
	}
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			switch op {
			case "<":
				return ls < rs, nil
			case "<=":
				return ls <= rs, nil
			case ">":
				return ls > rs, nil
			case ">=":
				return ls >= rs, nil
			}
		}
	}
	return false, fmt.Errorf("expr: cannot order %T against %T with %s", left, right, op)
}

// looseEqual compares across numeric kinds so an int64 binding equals a
// numeric literal, which always parses as float64.
func looseEqual(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if ln, ok := toNumber(left); ok {
		if rn, ok := toNumber(right); ok {
			return ln == rn
		}
		return false
	}
	if ls, ok := toString(left); ok {
		if rs, ok := toString(right); ok {
			return ls == rs
		}
		return false
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	return reflect.DeepEqual(left, right)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}

// truthy reduces a value to a condition result: nil and false are
// false, numbers are false when zero, empty strings are false, and any
// other non-nil value is true.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	}
	if n, ok := toNumber(v); ok {
		return n != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return !rv.IsNil()
	}
	return true
}
