package promptflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/promptflow/pkg/promptflow/template"
)

func always(Context) bool { return true }

func TestNode_Kinds(t *testing.T) {
	lit := Literal("hi")
	tmpl := MustTemplate("hi {name}")
	cond := If(always).Then(lit).MustBuild()
	loop := While(always).Do(tmpl).MustBuild()

	tests := []struct {
		node *Node
		kind Kind
		leaf bool
	}{
		{lit, KindLiteral, true},
		{tmpl, KindTemplate, true},
		{cond, KindConditional, false},
		{loop, KindLoop, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.node.Kind())
			assert.Equal(t, tt.leaf, tt.node.IsLeaf())
			assert.Equal(t, tt.kind.String(), tt.node.Describe())
		})
	}

	assert.Same(t, lit, cond.Then())
	assert.Nil(t, cond.Otherwise())
	assert.Same(t, tmpl, loop.Body())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestNode_Render(t *testing.T) {
	ctx := NewMapContext(map[string]any{"name": "ada"})

	tests := []struct {
		name    string
		node    *Node
		want    string
		wantOK  bool
		wantErr error
	}{
		{name: "literal", node: Literal("fixed"), want: "fixed", wantOK: true},
		{name: "empty literal is no prompt", node: Literal(""), wantOK: false},
		{name: "template", node: MustTemplate("hi {name}"), want: "hi ada", wantOK: true},
		{name: "empty template is no prompt", node: MustTemplate(""), wantOK: false},
		{name: "conditional is not a leaf", node: If(always).Then(Literal("x")).MustBuild(), wantErr: ErrNotLeaf},
		{name: "loop is not a leaf", node: While(always).Do(Literal("x")).MustBuild(), wantErr: ErrNotLeaf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.node.Render(ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNode_RenderMissingVariable(t *testing.T) {
	_, _, err := MustTemplate("hi {who}").Render(NewMapContext(nil))
	var missing *template.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "who", missing.Name)
}

func TestNode_ParseTemplate(t *testing.T) {
	_, err := ParseTemplate("broken {")
	assert.ErrorIs(t, err, template.ErrBraceMismatch)

	n, err := ParseTemplate("ok {x}")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, n.Tmpl().Variables())

	assert.Panics(t, func() { MustTemplate("{}") })
	assert.Panics(t, func() { Template(nil) })
}

func TestNode_NameAndLabels(t *testing.T) {
	base := Literal("x")
	named := base.WithName("greet").WithLabel("save_as", "greeting")

	assert.Equal(t, "", base.Name(), "WithName returns a copy")
	_, ok := base.Label("save_as")
	assert.False(t, ok)

	assert.Equal(t, "greet", named.Name())
	assert.Equal(t, "greet", named.Describe())
	v, ok := named.Label("save_as")
	assert.True(t, ok)
	assert.Equal(t, "greeting", v)

	labels := named.Labels()
	labels["save_as"] = "mutated"
	v, _ = named.Label("save_as")
	assert.Equal(t, "greeting", v, "Labels returns a copy")
}

func TestNode_Holds(t *testing.T) {
	ctx := NewMapContext(map[string]any{"go": false})
	assert.True(t, Literal("x").Holds(ctx))

	n := If(boolKey("go")).Then(Literal("x")).MustBuild()
	assert.False(t, n.Holds(ctx))
	ctx.Set("go", true)
	assert.True(t, n.Holds(ctx))
}

func TestBuilders_Errors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Node, error)
		kind    Kind
		wantErr error
	}{
		{"if without condition", If(nil).Then(Literal("x")).Build, KindConditional, ErrMissingCondition},
		{"if without then", If(always).Build, KindConditional, ErrMissingThen},
		{"while without condition", While(nil).Do(Literal("x")).Build, KindLoop, ErrMissingCondition},
		{"while without body", While(always).Build, KindLoop, ErrMissingBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.build()
			assert.Nil(t, n)
			assert.True(t, errors.Is(err, tt.wantErr))

			var be *BuildError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.kind, be.Kind)
		})
	}
}

func TestBuilders_MustBuildPanics(t *testing.T) {
	assert.PanicsWithValue(t, "promptflow: build conditional: missing then branch", func() {
		If(always).MustBuild()
	})
	assert.PanicsWithValue(t, "promptflow: build loop: missing loop body", func() {
		While(always).MustBuild()
	})
}

func TestChain_Push(t *testing.T) {
	c := NewChain(Literal("a")).Push(Literal("b"))
	assert.Equal(t, 2, c.Len())

	nodes := c.Nodes()
	nodes[0] = Literal("z")
	assert.Equal(t, "a", c.Nodes()[0].Text())

	assert.PanicsWithValue(t, "promptflow: cannot push nil node", func() {
		c.Push(nil)
	})
}
