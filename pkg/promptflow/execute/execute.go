package execute

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	pferrors "github.com/randalmurphal/promptflow/pkg/promptflow/errors"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
)

// DefaultBudget is the retry budget used when none is configured.
const DefaultBudget = 3

// Decoder turns a completion response into a value, optionally writing to
// the context. A nil value with a nil error means the step produced nothing.
type Decoder[T any] func(resp *llm.CompletionResponse, ctx promptflow.Context) (*T, error)

// Binding is a leaf bound to the models that may execute it and the
// decoder for their responses.
type Binding[T any] struct {
	// Node is the leaf to render.
	Node *promptflow.Node

	// Models is the ordered roster. Index 0 is tried first.
	Models []string

	// Decode handles the response. A nil Decode discards it.
	Decode Decoder[T]

	// Request settings.
	SystemPrompt string
	MaxTokens    int

	// Temperature is nil for the provider default.
	Temperature *float64
}

// Option configures a single Execute call.
type Option func(*execOptions)

type execOptions struct {
	modelIndex int
}

// WithModelIndex selects the roster entry to use. Default: 0
func WithModelIndex(i int) Option {
	return func(o *execOptions) { o.modelIndex = i }
}

var errNoNode = errors.New("binding has no node")

// Execute runs one attempt of b.
//
// pctx must not be nil. The client is called at most once.
func Execute[T any](ctx context.Context, b Binding[T], pctx promptflow.Context, client llm.Client, opts ...Option) *Result[T] {
	var o execOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result[T]{modelIndex: o.modelIndex, started: time.Now()}
	fail := func(err error) *Result[T] {
		res.failure = &Failure[T]{
			Err:        err,
			Binding:    b,
			Context:    pctx,
			Client:     client,
			ModelIndex: o.modelIndex,
		}
		res.duration = time.Since(res.started)
		return res
	}

	if len(b.Models) == 0 {
		return fail(pferrors.ErrModelNotConfigured)
	}
	if o.modelIndex < 0 || o.modelIndex >= len(b.Models) {
		return fail(&pferrors.InvalidModelSelectionError{Index: o.modelIndex, RosterSize: len(b.Models)})
	}
	res.model = b.Models[o.modelIndex]

	if b.Node == nil {
		return fail(&pferrors.RenderError{Err: errNoNode})
	}
	prompt, ok, err := b.Node.Render(pctx)
	if err != nil {
		return fail(&pferrors.RenderError{Node: b.Node.Describe(), Err: err})
	}
	if !ok {
		res.noPrompt = true
		res.duration = time.Since(res.started)
		return res
	}
	res.prompt = prompt

	reqOpts := []llm.RequestOption{
		llm.WithSystemPrompt(b.SystemPrompt),
		llm.WithMaxTokens(b.MaxTokens),
	}
	if b.Temperature != nil {
		reqOpts = append(reqOpts, llm.WithTemperature(*b.Temperature))
	}
	req, err := llm.NewRequest(prompt, res.model, reqOpts...)
	if err != nil {
		return fail(&pferrors.BuildError{Err: err})
	}

	resp, err := client.Complete(ctx, req)
	if err != nil {
		return fail(&pferrors.RemoteError{Model: res.model, Err: err})
	}
	res.response = resp

	if b.Decode == nil {
		res.duration = time.Since(res.started)
		return res
	}
	v, err := b.Decode(resp, pctx)
	if err != nil {
		return fail(&pferrors.DecodeError{Model: res.model, Err: err})
	}
	res.value = v
	res.duration = time.Since(res.started)
	return res
}
