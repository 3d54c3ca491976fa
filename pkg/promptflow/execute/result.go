package execute

import (
	"context"
	"time"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
)

// Result is the outcome of one Execute call.
type Result[T any] struct {
	value    *T
	failure  *Failure[T]
	response *llm.CompletionResponse

	prompt     string
	model      string
	modelIndex int
	noPrompt   bool

	started  time.Time
	duration time.Duration
}

// Failure is everything needed to retry a failed attempt.
type Failure[T any] struct {
	// Err is the classified failure.
	Err error

	Binding    Binding[T]
	Context    promptflow.Context
	Client     llm.Client
	ModelIndex int
}

// OK reports whether the attempt succeeded.
func (r *Result[T]) OK() bool { return r.failure == nil }

// Value returns the decoded value. It is nil on failure, for a "no prompt"
// step, and when the decoder produced nothing.
func (r *Result[T]) Value() *T { return r.value }

// Err returns the failure, or nil.
func (r *Result[T]) Err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure.Err
}

// Failure returns the retry record, or nil on success.
func (r *Result[T]) Failure() *Failure[T] { return r.failure }

// Unwrap returns the value and error.
func (r *Result[T]) Unwrap() (*T, error) { return r.value, r.Err() }

// NoPrompt reports whether the leaf rendered to nothing and no request was sent.
func (r *Result[T]) NoPrompt() bool { return r.noPrompt }

// Response returns the raw completion, or nil if none was received.
func (r *Result[T]) Response() *llm.CompletionResponse { return r.response }

// Prompt returns the rendered prompt text.
func (r *Result[T]) Prompt() string { return r.prompt }

// Model returns the model the attempt targeted, if the index was valid.
func (r *Result[T]) Model() string { return r.model }

// ModelIndex returns the roster index the attempt used.
func (r *Result[T]) ModelIndex() int { return r.modelIndex }

// Duration returns how long the attempt took.
func (r *Result[T]) Duration() time.Duration { return r.duration }

// Retry recovers a failed result with a Dispatcher built from opts.
// A successful result returns its value without any call.
func (r *Result[T]) Retry(ctx context.Context, budget int, opts ...DispatcherOption) (*T, error) {
	if r.failure == nil {
		return r.value, nil
	}
	return Dispatch(ctx, NewDispatcher(opts...), r.failure, budget)
}
