// Package runner drives a prompt chain to completion.
//
// A Runner repeatedly asks the chain's flow for the next leaf, executes it
// through the retry dispatcher, applies the leaf's bookkeeping labels, and
// journals every attempt. It is the loop a caller of the promptflow
// packages would otherwise write by hand.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	"github.com/randalmurphal/promptflow/pkg/promptflow/chaindef"
	"github.com/randalmurphal/promptflow/pkg/promptflow/decode"
	"github.com/randalmurphal/promptflow/pkg/promptflow/execute"
	"github.com/randalmurphal/promptflow/pkg/promptflow/journal"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
	"github.com/randalmurphal/promptflow/pkg/promptflow/observability"
	"github.com/randalmurphal/promptflow/pkg/promptflow/registry"
)

// ErrNoClient is returned when a Runner has no completion client.
var ErrNoClient = errors.New("runner has no llm client")

// StepError reports the leaf a run failed on.
type StepError struct {
	// Step is the 1-based count of leaves executed, including this one.
	Step int
	Node string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Node, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Job is one chain to run with its execution settings.
type Job struct {
	Name    string
	Chain   *promptflow.Chain
	Context promptflow.Context

	Models       []string
	SystemPrompt string
	MaxTokens    int
	Temperature  *float64
	Budget       int
	MaxSteps     int
}

// Report summarizes a run.
type Report struct {
	RunID string
	Chain string

	// Steps counts leaves executed. Skipped counts those that rendered
	// no prompt and made no call.
	Steps    int
	Skipped  int
	Attempts int
	Usage    llm.TokenUsage

	// Complete is false when the flow stopped on a live loop whose body
	// had nothing to yield.
	Complete bool

	Duration time.Duration
	Context  promptflow.Context
}

// Runner executes jobs. It is safe for concurrent use; each Run owns its
// job's context.
type Runner struct {
	client   llm.Client
	settings Settings
	decoders *registry.Registry[decode.Factory]
	journal  journal.Store
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	observer execute.Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithSettings replaces DefaultSettings.
func WithSettings(s Settings) Option {
	return func(r *Runner) { r.settings = s }
}

// WithDecoders replaces the stock decoder registry (decode.Builtins).
func WithDecoders(d *registry.Registry[decode.Factory]) Option {
	return func(r *Runner) { r.decoders = d }
}

// WithJournal records every attempt to store.
func WithJournal(store journal.Store) Option {
	return func(r *Runner) { r.journal = store }
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics sets the metrics recorder. Default: none.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithSpans sets the span manager. Default: none.
func WithSpans(s observability.SpanManager) Option {
	return func(r *Runner) {
		if s != nil {
			r.spans = s
		}
	}
}

// WithObserver receives every attempt, after it is journaled.
func WithObserver(fn execute.Observer) Option {
	return func(r *Runner) { r.observer = fn }
}

// New creates a runner that sends completions to client.
func New(client llm.Client, opts ...Option) *Runner {
	r := &Runner{
		client:   client,
		settings: DefaultSettings(),
		decoders: decode.Builtins(),
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the runner's settings.
func (r *Runner) Settings() Settings { return r.settings }

// KnownDecoder reports whether name is a registered decoder. It fits
// chaindef.WithDecoders.
func (r *Runner) KnownDecoder(name string) bool { return r.decoders.Has(name) }

// JobFor builds a chain definition into a job, filling unset fields from
// the runner's settings.
func (r *Runner) JobFor(def *chaindef.Definition, opts ...chaindef.BuildOption) (Job, error) {
	opts = append([]chaindef.BuildOption{chaindef.WithDecoders(r.KnownDecoder)}, opts...)
	chain, err := def.Build(opts...)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		Name:         def.Name,
		Chain:        chain,
		Context:      def.NewContext(),
		Models:       def.Models,
		SystemPrompt: def.SystemPrompt,
		MaxTokens:    def.MaxTokens,
		Temperature:  def.Temperature,
		Budget:       r.settings.Budget,
		MaxSteps:     r.settings.MaxSteps,
	}
	if len(job.Models) == 0 {
		job.Models = r.settings.Models
	}
	if def.Budget != nil {
		job.Budget = *def.Budget
	}
	if def.MaxSteps > 0 {
		job.MaxSteps = def.MaxSteps
	}
	return job, nil
}

// RunDefinition builds def and runs it.
func (r *Runner) RunDefinition(ctx context.Context, def *chaindef.Definition, opts ...chaindef.BuildOption) (*Report, error) {
	job, err := r.JobFor(def, opts...)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, job)
}

// Run executes job until its flow yields no more leaves.
//
// The report is returned on every path, with the counts reached so far.
func (r *Runner) Run(ctx context.Context, job Job) (*Report, error) {
	if job.Context == nil {
		job.Context = promptflow.NewMapContext(nil)
	}
	rep := &Report{
		RunID:   uuid.NewString(),
		Chain:   job.Name,
		Context: job.Context,
	}
	if r.client == nil {
		return rep, ErrNoClient
	}
	if job.Chain == nil {
		return rep, fmt.Errorf("job %q has no chain", job.Name)
	}

	ctx, span := r.spans.StartRunSpan(ctx, job.Name, rep.RunID)
	observability.LogRunStart(r.logger, rep.RunID, job.Name)
	elapsed := observability.TimedOperation()
	started := time.Now()

	err := r.loop(ctx, job, rep)

	rep.Duration = time.Since(started)
	r.spans.EndSpanWithError(span, err)
	r.metrics.RecordChainRun(ctx, err == nil, rep.Duration)
	if err != nil {
		observability.LogRunError(r.logger, rep.RunID, err, elapsed(), rep.Steps)
		return rep, err
	}
	observability.LogRunComplete(r.logger, rep.RunID, elapsed(), rep.Steps)
	return rep, nil
}

func (r *Runner) loop(ctx context.Context, job Job, rep *Report) error {
	var (
		step int
		node string
	)
	observe := func(a execute.Attempt) {
		rep.Attempts++
		rep.Usage.Add(a.Usage)
		if r.journal != nil {
			if err := r.journal.Append(ctx, journal.FromAttempt(rep.RunID, step, node, a)); err != nil {
				observability.LogJournalError(r.logger, "append", err)
			}
		}
		if r.observer != nil {
			r.observer(a)
		}
	}

	d := execute.NewDispatcher(
		execute.WithPolicy(r.settings.Policy),
		execute.WithLogger(r.logger),
		execute.WithMetrics(r.metrics),
		execute.WithSpans(r.spans),
		execute.WithObserver(observe),
	)
	flow := job.Chain.Flow(
		promptflow.WithMaxIterations(job.MaxSteps),
		promptflow.WithLogger(r.logger),
	)
	schemas := make(map[string]execute.Decoder[any])

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		leaf, ok := flow.Next(job.Context)
		if !ok {
			if err := flow.Err(); err != nil {
				return err
			}
			rep.Complete = flow.Done()
			return nil
		}

		step++
		rep.Steps = step
		node = leaf.Describe()
		r.metrics.RecordLeaf(ctx, leaf.Kind().String())
		stepFail := func(err error) error {
			return &StepError{Step: step, Node: node, Err: err}
		}

		dec, err := r.decoderFor(leaf, schemas)
		if err != nil {
			return stepFail(err)
		}

		b := execute.Binding[any]{
			Node:         leaf,
			Models:       job.Models,
			Decode:       dec,
			SystemPrompt: job.SystemPrompt,
			MaxTokens:    job.MaxTokens,
			Temperature:  job.Temperature,
		}
		res, _, err := execute.Run(ctx, d, b, job.Context, r.client, job.Budget)
		if err != nil {
			return stepFail(err)
		}
		if res.NoPrompt() {
			rep.Skipped++
		}

		if key, ok := leaf.Label(chaindef.LabelIncr); ok {
			if err := increment(job.Context, key); err != nil {
				return stepFail(err)
			}
		}
	}
}

// decoderFor resolves a leaf's decode labels. Compiled schema decoders are
// cached per run, keyed by schema and target.
func (r *Runner) decoderFor(leaf *promptflow.Node, schemas map[string]execute.Decoder[any]) (execute.Decoder[any], error) {
	saveAs, _ := leaf.Label(chaindef.LabelSaveAs)

	if schema, ok := leaf.Label(chaindef.LabelSchema); ok {
		key := saveAs + "\x00" + schema
		if d, ok := schemas[key]; ok {
			return d, nil
		}
		d, err := decode.WithSchema(schema, saveAs)
		if err != nil {
			return nil, err
		}
		schemas[key] = d
		return d, nil
	}

	name, ok := leaf.Label(chaindef.LabelDecode)
	if !ok {
		return nil, nil
	}
	factory, err := r.decoders.Lookup(name)
	if err != nil {
		return nil, err
	}
	return factory(saveAs), nil
}

// increment adds one to the integer under key. A missing key becomes 1.
func increment(ctx promptflow.Context, key string) error {
	v, ok := ctx.Value(key)
	if !ok || v == nil {
		ctx.Set(key, 1)
		return nil
	}
	switch n := v.(type) {
	case int:
		ctx.Set(key, n+1)
	case int64:
		ctx.Set(key, n+1)
	case float64:
		ctx.Set(key, n+1)
	default:
		return fmt.Errorf("incr %q: value has type %T, want a number", key, v)
	}
	return nil
}
