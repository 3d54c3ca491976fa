package promptflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

type color int

func (c color) String() string { return [...]string{"red", "green"}[c] }

func TestMapContext_GetAndSet(t *testing.T) {
	ctx := NewMapContext(map[string]any{
		"name":  "ada",
		"count": 3,
		"pt":    point{1, 2},
	})

	name, ok := Get[string](ctx, "name")
	assert.True(t, ok)
	assert.Equal(t, "ada", name)

	count, ok := Get[int](ctx, "count")
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	_, ok = Get[string](ctx, "count")
	assert.False(t, ok, "wrong type reports false")

	_, ok = Get[int](ctx, "missing")
	assert.False(t, ok)

	ctx.Set("count", 10)
	count, _ = Get[int](ctx, "count")
	assert.Equal(t, 10, count)
}

func TestMapContext_GetMut(t *testing.T) {
	ctx := NewMapContext(map[string]any{"count": 1, "pt": point{1, 2}})

	p, ok := GetMut[int](ctx, "count")
	require.True(t, ok)
	*p += 41

	got, _ := Get[int](ctx, "count")
	assert.Equal(t, 42, got)

	pt, ok := GetMut[point](ctx, "pt")
	require.True(t, ok)
	pt.Y = 9
	gotPt, _ := Get[point](ctx, "pt")
	assert.Equal(t, point{1, 9}, gotPt)

	_, ok = GetMut[string](ctx, "count")
	assert.False(t, ok)
}

func TestMapContext_NilValue(t *testing.T) {
	ctx := NewMapContext(nil)
	ctx.Set("empty", nil)

	v, ok := ctx.Value("empty")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = ctx.Ref("empty")
	assert.False(t, ok)

	_, ok = ctx.TemplateVar("empty")
	assert.False(t, ok)
}

func TestMapContext_ZeroValueUsable(t *testing.T) {
	var ctx MapContext
	ctx.Set("k", "v")
	v, ok := Get[string](&ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMapContext_TemplateVar(t *testing.T) {
	ctx := NewMapContext(map[string]any{
		"s":     "text",
		"n":     7,
		"f":     1.5,
		"c":     color(1),
		"d":     2 * time.Second,
		"slice": []int{1, 2},
	})

	tests := []struct {
		key  string
		want string
	}{
		{"s", "text"},
		{"n", "7"},
		{"f", "1.5"},
		{"c", "green"},
		{"d", "2s"},
		{"slice", "[1 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := ctx.TemplateVar(tt.key)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ctx.TemplateVar("missing")
	assert.False(t, ok)
}

func TestMapContext_Bookkeeping(t *testing.T) {
	ctx := NewMapContext(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, []string{"a", "b"}, ctx.Keys())
	assert.Equal(t, 2, ctx.Len())
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, ctx.Snapshot())

	ctx.Delete("a")
	assert.Equal(t, []string{"b"}, ctx.Keys())
	_, ok := ctx.Value("a")
	assert.False(t, ok)
}
