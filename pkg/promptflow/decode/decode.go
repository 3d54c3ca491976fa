// Package decode provides ready-made response decoders for
// execute.Binding.
//
// Each decoder stores what it produced in the context under a key, so
// later conditions and templates can read it. An empty key skips the
// store.
//
//	b := execute.Binding[Review]{
//	    Node:   reviewNode,
//	    Models: []string{"gpt-4o"},
//	    Decode: decode.JSON[Review]("review"),
//	}
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	"github.com/randalmurphal/promptflow/pkg/promptflow/execute"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
)

var (
	// ErrNilResponse is returned when a decoder receives no response.
	ErrNilResponse = errors.New("nil response")

	// ErrNoJSON is returned when a response holds no JSON document.
	ErrNoJSON = errors.New("response contains no JSON")
)

// SchemaError reports a response that does not satisfy a JSON schema.
type SchemaError struct {
	Err error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation: %v", e.Err)
}

// Unwrap returns the validator's error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON returns the JSON document inside a response: the body of
// the first fenced code block if there is one, otherwise the outermost
// {...} or [...] span. It returns "" when neither is present.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if m := fenced.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			return s[start : end+1]
		}
	}
	return ""
}

func store[T any](ctx promptflow.Context, key string, v T) {
	if key != "" && ctx != nil {
		ctx.Set(key, v)
	}
}

func content(resp *llm.CompletionResponse) (string, error) {
	if resp == nil {
		return "", ErrNilResponse
	}
	return resp.Content, nil
}

// Text returns the trimmed response content.
func Text(key string) execute.Decoder[string] {
	return func(resp *llm.CompletionResponse, ctx promptflow.Context) (*string, error) {
		s, err := content(resp)
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		store(ctx, key, s)
		return &s, nil
	}
}

// JSON unmarshals the JSON document in the response into a T.
func JSON[T any](key string) execute.Decoder[T] {
	return func(resp *llm.CompletionResponse, ctx promptflow.Context) (*T, error) {
		raw, err := jsonBody(resp)
		if err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("unmarshal %T: %w", v, err)
		}
		store(ctx, key, v)
		return &v, nil
	}
}

// JSONSchema is like JSON but first validates the document against
// schema, a JSON Schema given as JSON text. The schema is compiled once;
// an invalid schema is reported here rather than on every response.
func JSONSchema[T any](schema, key string) (execute.Decoder[T], error) {
	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	unmarshal := JSON[T](key)
	return func(resp *llm.CompletionResponse, ctx promptflow.Context) (*T, error) {
		raw, err := jsonBody(resp)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		if err := compiled.Validate(doc); err != nil {
			return nil, &SchemaError{Err: err}
		}
		return unmarshal(resp, ctx)
	}, nil
}

func compileSchema(schema string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", strings.NewReader(schema)); err != nil {
		return nil, err
	}
	return c.Compile("response.json")
}

// Struct decodes a JSON object in the response into T with mapstructure,
// matching fields by their json tags and converting loosely typed values
// ("4" into an int field, 1 into a bool field).
func Struct[T any](key string) execute.Decoder[T] {
	return func(resp *llm.CompletionResponse, ctx promptflow.Context) (*T, error) {
		raw, err := jsonBody(resp)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("parse json object: %w", err)
		}

		var v T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &v,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, fmt.Errorf("build decoder: %w", err)
		}
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("decode %T: %w", v, err)
		}
		store(ctx, key, v)
		return &v, nil
	}
}

// Map decodes a JSON object in the response and stores each top-level
// field in the context under prefix+field. It returns the whole object.
func Map(prefix string) execute.Decoder[map[string]any] {
	return func(resp *llm.CompletionResponse, ctx promptflow.Context) (*map[string]any, error) {
		raw, err := jsonBody(resp)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("parse json object: %w", err)
		}
		for k, v := range m {
			store(ctx, prefix+k, v)
		}
		return &m, nil
	}
}

func jsonBody(resp *llm.CompletionResponse) (string, error) {
	s, err := content(resp)
	if err != nil {
		return "", err
	}
	raw := ExtractJSON(s)
	if raw == "" {
		return "", ErrNoJSON
	}
	if !json.Valid([]byte(raw)) {
		return "", fmt.Errorf("%w: malformed document", ErrNoJSON)
	}
	return raw, nil
}
