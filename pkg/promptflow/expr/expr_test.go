package expr

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_Comparisons(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars map[string]any
		want bool
	}{
		{"quoted string equality", "status == 'active'", map[string]any{"status": "active"}, true},
		{"double quoted string", `status == "active"`, map[string]any{"status": "active"}, true},
		{"unquoted word", "status == done", map[string]any{"status": "done"}, true},
		{"string inequality", "status != 'active'", map[string]any{"status": "idle"}, true},
		{"int equality", "count == 5", map[string]any{"count": 5}, true},
		{"int vs float literal", "count == 5.0", map[string]any{"count": 5}, true},
		{"bool equality", "enabled == true", map[string]any{"enabled": true}, true},
		{"two variables", "a == b", map[string]any{"a": "x", "b": "x"}, true},
		{"less than", "round < 3", map[string]any{"round": 2}, true},
		{"less than false", "round < 3", map[string]any{"round": 3}, false},
		{"less or equal", "round <= 3", map[string]any{"round": 3}, true},
		{"greater than", "score > 0.5", map[string]any{"score": 0.75}, true},
		{"greater or equal", "score >= 1", map[string]any{"score": 0.5}, false},
		{"negative number", "delta > -1", map[string]any{"delta": 0}, true},
		{"numeric string", "n < 10", map[string]any{"n": "7"}, true},
		{"contains", "reply contains 'LGTM'", map[string]any{"reply": "looks fine, LGTM"}, true},
		{"contains false", "reply contains 'LGTM'", map[string]any{"reply": "needs work"}, false},
		{"missing var compares as 0", "count < 5", map[string]any{}, true},
		{"null literal", "x == null", map[string]any{"x": nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEval_Logic(t *testing.T) {
	vars := map[string]any{"a": true, "b": false, "n": 3, "name": ""}

	tests := []struct {
		expr string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"name", false},
		{"not b", true},
		{"!a", false},
		{"!!a", true},
		{"a and b", false},
		{"a or b", true},
		{"b or n > 2", true},
		{"a and n > 2 and not b", true},
		{"b and n > 2 or a", true},
		{"b and (n > 2 or a)", false},
		{"not (a and b)", true},
		{"n != 3 or b", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEval_DottedPath(t *testing.T) {
	vars := map[string]any{
		"review": map[string]any{
			"score":  4,
			"detail": map[string]any{"verdict": "approve"},
		},
		"flat.key": "direct",
	}

	got, err := Eval("review.score > 3", vars)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Eval("review.detail.verdict == approve", vars)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Eval("flat.key == 'direct'", vars)
	require.NoError(t, err)
	assert.True(t, got, "exact key wins over path lookup")

	got, err = Eval("review.missing == 'review.missing'", vars)
	require.NoError(t, err)
	assert.True(t, got, "unresolved path evaluates to its own name")
}

func TestCompile_Empty(t *testing.T) {
	for _, src := range []string{"", "   "} {
		e, err := Compile(src)
		require.NoError(t, err)
		assert.False(t, e.Eval(Map{"x": true}))
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"status == 'open", "unterminated string"},
		{"a ==", "unexpected end of expression"},
		{"(a and b", "expected )"},
		{"a b", `unexpected "b"`},
		{"a == == b", `unexpected "=="`},
		{"a @ b", "unexpected character"},
		{"and a", `unexpected "and"`},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Compile(tt.src)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "expr: unexpected end of expression at offset 4", func() {
		MustCompile("a ==")
	})
	assert.NotPanics(t, func() { MustCompile("a == b") })
}

func TestCustomOperator(t *testing.T) {
	startsWith := func(l, r any) bool {
		ls, ok1 := l.(string)
		rs, ok2 := r.(string)
		return ok1 && ok2 && strings.HasPrefix(ls, rs)
	}

	e, err := Compile("reply startswith 'yes'", WithCustomOperator("startswith", startsWith))
	require.NoError(t, err)

	assert.True(t, e.Eval(Map{"reply": "yes, ship it"}))
	assert.False(t, e.Eval(Map{"reply": "no"}))

	_, err = Compile("reply startswith 'yes'")
	require.Error(t, err, "unknown operator is a syntax error without registration")
}

func TestExpr_String(t *testing.T) {
	e := MustCompile("a and b")
	assert.Equal(t, "a and b", e.String())
}

func TestExpr_NilVars(t *testing.T) {
	e := MustCompile("status == status")
	assert.True(t, e.Eval(nil))
}

func TestExpr_ConcurrentEval(t *testing.T) {
	e := MustCompile("n < 100 and ready")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Equal(t, i%2 == 0, e.Eval(Map{"n": i, "ready": i%2 == 0}))
		}(i)
	}
	wg.Wait()
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{"", false},
		{"x", true},
		{0, false},
		{1, true},
		{int64(0), false},
		{uint(2), true},
		{0.0, false},
		{float32(0.5), true},
		{[]string{}, true},
		{struct{}{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTruthy(tt.v), "%#v", tt.v)
	}
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 3.0, ToFloat64(3))
	assert.Equal(t, 3.0, ToFloat64(int64(3)))
	assert.Equal(t, 2.5, ToFloat64(2.5))
	assert.Equal(t, 1.0, ToFloat64(true))
	assert.Equal(t, 0.0, ToFloat64(false))
	assert.Equal(t, 4.5, ToFloat64(" 4.5 "))
	assert.Equal(t, 0.0, ToFloat64("abc"))
	assert.Equal(t, 0.0, ToFloat64(nil))
}
