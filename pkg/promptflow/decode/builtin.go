package decode

import (
	"github.com/randalmurphal/promptflow/pkg/promptflow"
	"github.com/randalmurphal/promptflow/pkg/promptflow/execute"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
	"github.com/randalmurphal/promptflow/pkg/promptflow/registry"
)

// Factory builds a decoder that stores its result under key.
type Factory func(key string) execute.Decoder[any]

// Erase adapts a typed decoder to one producing any, for callers that
// run leaves with different result types through one binding type.
func Erase[T any](d execute.Decoder[T]) execute.Decoder[any] {
	if d == nil {
		return nil
	}
	return func(resp *llm.CompletionResponse, ctx promptflow.Context) (*any, error) {
		v, err := d(resp, ctx)
		if err != nil || v == nil {
			return nil, err
		}
		var out any = *v
		return &out, nil
	}
}

// Builtins returns a registry of the stock decoders by name:
// "text", "json" and "map". "map" stores each field under key + ".".
func Builtins() *registry.Registry[Factory] {
	r := registry.New[Factory]("decoder")
	r.MustAdd("text", func(key string) execute.Decoder[any] { return Erase(Text(key)) })
	r.MustAdd("json", func(key string) execute.Decoder[any] { return Erase(JSON[any](key)) })
	r.MustAdd("map", func(key string) execute.Decoder[any] {
		prefix := ""
		if key != "" {
			prefix = key + "."
		}
		return Erase(Map(prefix))
	})
	return r
}

// WithSchema builds an any-typed decoder validating against schema.
func WithSchema(schema, key string) (execute.Decoder[any], error) {
	d, err := JSONSchema[any](schema, key)
	if err != nil {
		return nil, err
	}
	return Erase(d), nil
}
