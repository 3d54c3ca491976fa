package expr

import "strings"

// Expr is a compiled expression. It is immutable and safe for concurrent use.
type Expr struct {
	src  string
	root node
}

// Option configures compilation.
type Option func(*compiler)

type compiler struct {
	customOps map[string]BinaryOp
}

// WithCustomOperator registers a custom infix operator.
// Built-in operators take precedence over a custom one with the same name.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(c *compiler) {
		if c.customOps == nil {
			c.customOps = make(map[string]BinaryOp)
		}
		c.customOps[name] = fn
	}
}

// Compile parses src. An empty or blank src compiles to an expression that
// is always false.
func Compile(src string, opts ...Option) (*Expr, error) {
	var c compiler
	for _, opt := range opts {
		opt(&c)
	}

	if strings.TrimSpace(src) == "" {
		return &Expr{src: src, root: literalNode{false}}, nil
	}

	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, customOps: c.customOps}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected " + quote(t.text)}
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string, opts ...Option) *Expr {
	e, err := Compile(src, opts...)
	if err != nil {
		panic(err.Error())
	}
	return e
}

// Eval evaluates the expression and tests the result for truthiness.
func (e *Expr) Eval(vars Vars) bool {
	return IsTruthy(e.root.eval(vars))
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Eval compiles and evaluates src against vars in one step.
func Eval(src string, vars map[string]any) (bool, error) {
	e, err := Compile(src)
	if err != nil {
		return false, err
	}
	return e.Eval(Map(vars)), nil
}

func quote(s string) string { return "\"" + s + "\"" }
