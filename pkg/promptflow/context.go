package promptflow

import (
	"fmt"
	"reflect"
	"sort"
)

// Context is the mutable state a chain is evaluated against.
//
// Conditions read it, templates render from it, and response decoders
// write to it. A Context is owned by one chain traversal at a time and
// is not required to be safe for concurrent use.
type Context interface {
	// Value returns the value stored under key.
	Value(key string) (any, bool)

	// Ref returns a pointer to the value stored under key, so callers can
	// mutate it in place. The dynamic type is *T for a value of type T.
	Ref(key string) (any, bool)

	// Set stores value under key, replacing any previous value.
	Set(key string, value any)

	// TemplateVar returns the string form of key for template rendering.
	TemplateVar(key string) (string, bool)
}

// Get returns the value under key if it exists and has type T.
//
// Example:
//
//	count, ok := promptflow.Get[int](ctx, "count")
func Get[T any](c Context, key string) (T, bool) {
	var zero T
	v, ok := c.Value(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// GetMut returns a pointer to the value under key if it exists and has type T.
// Writes through the pointer are visible to later reads.
//
// Example:
//
//	if n, ok := promptflow.GetMut[int](ctx, "count"); ok {
//	    *n++
//	}
func GetMut[T any](c Context, key string) (*T, bool) {
	r, ok := c.Ref(key)
	if !ok {
		return nil, false
	}
	p, ok := r.(*T)
	return p, ok
}

// MapContext is the default Context, a map of boxed values.
type MapContext struct {
	data map[string]any
}

// Compile-time interface check.
var _ Context = (*MapContext)(nil)

// NewMapContext creates a context seeded with values.
func NewMapContext(values map[string]any) *MapContext {
	c := &MapContext{data: make(map[string]any, len(values))}
	for k, v := range values {
		c.Set(k, v)
	}
	return c
}

// Set implements Context.
func (c *MapContext) Set(key string, value any) {
	if c.data == nil {
		c.data = make(map[string]any)
	}
	if value == nil {
		c.data[key] = nil
		return
	}
	box := reflect.New(reflect.TypeOf(value))
	box.Elem().Set(reflect.ValueOf(value))
	c.data[key] = box.Interface()
}

// Value implements Context.
func (c *MapContext) Value(key string) (any, bool) {
	box, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if box == nil {
		return nil, true
	}
	return reflect.ValueOf(box).Elem().Interface(), true
}

// Ref implements Context.
// A key explicitly set to nil has no addressable value and reports false.
func (c *MapContext) Ref(key string) (any, bool) {
	box, ok := c.data[key]
	if !ok || box == nil {
		return nil, false
	}
	return box, true
}

// TemplateVar implements Context.
// Strings render as-is, fmt.Stringer values via String, everything else via fmt.Sprint.
func (c *MapContext) TemplateVar(key string) (string, bool) {
	v, ok := c.Value(key)
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// Delete removes key.
func (c *MapContext) Delete(key string) {
	delete(c.data, key)
}

// Keys returns all keys in sorted order.
func (c *MapContext) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (c *MapContext) Len() int {
	return len(c.data)
}

// Snapshot returns a copy of the current values (unboxed).
func (c *MapContext) Snapshot() map[string]any {
	out := make(map[string]any, len(c.data))
	for k := range c.data {
		out[k], _ = c.Value(k)
	}
	return out
}
