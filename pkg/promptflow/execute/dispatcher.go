package execute

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	pferrors "github.com/randalmurphal/promptflow/pkg/promptflow/errors"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
	"github.com/randalmurphal/promptflow/pkg/promptflow/observability"
)

// Dispatch outcomes, as recorded in metrics.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeExhausted = "exhausted"
	OutcomeAborted   = "aborted"
	OutcomeCanceled  = "canceled"
)

// Attempt describes one completed attempt, initial or retry.
type Attempt struct {
	// Number is 0 for the initial attempt and n for the n-th retry.
	Number     int
	Model      string
	ModelIndex int
	Prompt     string
	Usage      llm.TokenUsage

	// Err is nil on success. Action is its classification.
	Err    error
	Action string

	Started  time.Time
	Duration time.Duration
}

// Observer receives every attempt a Dispatcher makes.
type Observer func(Attempt)

// Dispatcher carries out the recovery policy for failed attempts.
//
// A Dispatcher holds no per-run state and is safe for concurrent use.
type Dispatcher struct {
	policy    pferrors.Policy
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	observers []Observer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// NewDispatcher creates a dispatcher with DefaultPolicy, the default
// logger, and no metrics or tracing.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		policy:  pferrors.DefaultPolicy,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithPolicy replaces the classification policy.
//
// Example:
//
//	d := execute.NewDispatcher(execute.WithPolicy(errors.Policy{
//	    RateLimitDelay:   5 * time.Second,
//	    ServerErrorDelay: 10 * time.Second,
//	}))
func WithPolicy(p pferrors.Policy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithSpans sets the span manager.
func WithSpans(s observability.SpanManager) DispatcherOption {
	return func(d *Dispatcher) {
		if s != nil {
			d.spans = s
		}
	}
}

// WithObserver registers fn to be called after every attempt.
func WithObserver(fn Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.observers = append(d.observers, fn)
		}
	}
}

// Policy returns the dispatcher's policy.
func (d *Dispatcher) Policy() pferrors.Policy { return d.policy }

// Run executes b once and, if that fails, recovers it within budget.
// It is the instrumented equivalent of Execute followed by Result.Retry.
func Run[T any](ctx context.Context, d *Dispatcher, b Binding[T], pctx promptflow.Context, client llm.Client, budget int) (*Result[T], *T, error) {
	if d == nil {
		d = NewDispatcher()
	}
	res := attempt(ctx, d, b, pctx, client, 0, 0)
	if res.OK() {
		return res, res.value, nil
	}
	v, err := Dispatch(ctx, d, res.failure, budget)
	return res, v, err
}

// Dispatch retries f until an attempt succeeds, the failure is fatal, or
// budget retries have been made.
func Dispatch[T any](ctx context.Context, d *Dispatcher, f *Failure[T], budget int) (*T, error) {
	if d == nil {
		d = NewDispatcher()
	}
	if f == nil {
		return nil, nil
	}
	budget = max(budget, 0)
	roster := len(f.Binding.Models)

	current := f
	for retries := 0; ; retries++ {
		action := pferrors.Classify(current.Err, roster, d.policy)
		if !action.Retryable() {
			observability.LogRetryAborted(d.logger, current.Err)
			d.metrics.RecordDispatch(ctx, OutcomeAborted, retries)
			return nil, current.Err
		}
		if retries >= budget {
			observability.LogRetryExhausted(d.logger, budget, current.Err)
			d.metrics.RecordDispatch(ctx, OutcomeExhausted, retries)
			return nil, &pferrors.RetryBudgetExceededError{Budget: budget, Last: current.Err}
		}

		index := action.NextIndex(current.ModelIndex, roster)
		observability.LogRetryScheduled(d.logger, action.String(), index, action.Delay, budget-retries-1)
		d.metrics.RecordRetry(ctx, action.String())
		d.spans.AddSpanEvent(ctx, "retry",
			attribute.String("action", action.String()),
			attribute.Int("model_index", index),
		)

		if action.Kind == pferrors.ActionRetryAfterDelay && action.Delay > 0 {
			if err := sleep(ctx, action.Delay); err != nil {
				d.metrics.RecordDispatch(ctx, OutcomeCanceled, retries)
				return nil, fmt.Errorf("retry delay interrupted: %w (last failure: %w)", err, current.Err)
			}
		}

		res := attempt(ctx, d, current.Binding, current.Context, current.Client, index, retries+1)
		if res.OK() {
			d.metrics.RecordDispatch(ctx, OutcomeSucceeded, retries+1)
			return res.value, nil
		}
		current = res.failure
	}
}

// attempt runs Execute under a span and reports it to metrics and observers.
func attempt[T any](ctx context.Context, d *Dispatcher, b Binding[T], pctx promptflow.Context, client llm.Client, index, number int) *Result[T] {
	spanModel := ""
	if index >= 0 && index < len(b.Models) {
		spanModel = b.Models[index]
	}
	spanCtx, span := d.spans.StartAttemptSpan(ctx, spanModel, number)

	res := Execute(spanCtx, b, pctx, client, WithModelIndex(index))
	err := res.Err()
	d.spans.EndSpanWithError(span, err)

	if !res.noPrompt {
		d.metrics.RecordAttempt(ctx, res.model, res.duration, err)
	}

	info := Attempt{
		Number:     number,
		Model:      res.model,
		ModelIndex: index,
		Prompt:     res.prompt,
		Err:        err,
		Started:    res.started,
		Duration:   res.duration,
	}
	if res.response != nil {
		info.Usage = res.response.Usage
	}
	if err != nil {
		info.Action = pferrors.Classify(err, len(b.Models), d.policy).String()
		observability.LogAttemptFailed(d.logger, res.model, index, err)
	}
	for _, obs := range d.observers {
		obs(info)
	}
	return res
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
