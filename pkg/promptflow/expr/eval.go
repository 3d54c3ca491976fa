package expr

import (
	"fmt"
	"strings"
)

// Vars is the variable source an expression is evaluated against.
// promptflow.Context satisfies it.
type Vars interface {
	Value(key string) (any, bool)
}

// Map adapts a plain map to Vars.
type Map map[string]any

// Value implements Vars.
func (m Map) Value(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// BinaryOp is a function that compares two values and returns a boolean result.
type BinaryOp func(left, right any) bool

var builtinOps = map[string]BinaryOp{
	"==":       func(l, r any) bool { return fmt.Sprint(l) == fmt.Sprint(r) },
	"!=":       func(l, r any) bool { return fmt.Sprint(l) != fmt.Sprint(r) },
	"<":        func(l, r any) bool { return ToFloat64(l) < ToFloat64(r) },
	">":        func(l, r any) bool { return ToFloat64(l) > ToFloat64(r) },
	"<=":       func(l, r any) bool { return ToFloat64(l) <= ToFloat64(r) },
	">=":       func(l, r any) bool { return ToFloat64(l) >= ToFloat64(r) },
	"contains": func(l, r any) bool { return strings.Contains(fmt.Sprint(l), fmt.Sprint(r)) },
}

type node interface {
	eval(vars Vars) any
}

type literalNode struct{ v any }

func (n literalNode) eval(Vars) any { return n.v }

type identNode struct {
	name string
	path []string
}

func (n identNode) eval(vars Vars) any {
	if vars == nil {
		return n.name
	}
	if v, ok := vars.Value(n.name); ok {
		return v
	}
	if len(n.path) < 2 {
		return n.name
	}
	cur, ok := vars.Value(n.path[0])
	if !ok {
		return n.name
	}
	for _, key := range n.path[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return n.name
		}
		if cur, ok = m[key]; !ok {
			return n.name
		}
	}
	return cur
}

type notNode struct{ x node }

func (n notNode) eval(vars Vars) any { return !IsTruthy(n.x.eval(vars)) }

type andNode struct{ l, r node }

func (n andNode) eval(vars Vars) any { return IsTruthy(n.l.eval(vars)) && IsTruthy(n.r.eval(vars)) }

type orNode struct{ l, r node }

func (n orNode) eval(vars Vars) any { return IsTruthy(n.l.eval(vars)) || IsTruthy(n.r.eval(vars)) }

type compareNode struct {
	op          string
	fn          BinaryOp
	left, right node
}

func (n compareNode) eval(vars Vars) any { return n.fn(n.left.eval(vars), n.right.eval(vars)) }
