package chaindef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	"github.com/randalmurphal/promptflow/pkg/promptflow/expr"
	"github.com/randalmurphal/promptflow/pkg/promptflow/registry"
	"github.com/randalmurphal/promptflow/pkg/promptflow/template"
)

// Sentinel errors for chain building.
var (
	// ErrNoSteps indicates a chain file without steps.
	ErrNoSteps = errors.New("chain has no steps")

	// ErrStepKind indicates a step that is not exactly one of
	// literal, template, if or while.
	ErrStepKind = errors.New("step must have exactly one of literal, template, if, while")

	// ErrLeafOnly indicates decode, save_as, incr or schema on a non-leaf step.
	ErrLeafOnly = errors.New("decode, save_as, incr and schema apply to literal and template steps only")

	// ErrUnknownDecoder indicates a decode name the runner does not provide.
	ErrUnknownDecoder = errors.New("unknown decoder")
)

// StepError locates a build failure in the chain file.
type StepError struct {
	// Path is the step location, e.g. "steps[2].then".
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// BuildOption configures Build.
type BuildOption func(*builder)

type builder struct {
	conditions *registry.Registry[promptflow.Condition]
	decoders   func(name string) bool
	exprOpts   []expr.Option
	tmplOpts   []template.Option
}

// WithConditions supplies the registry if_func and while_func resolve against.
func WithConditions(r *registry.Registry[promptflow.Condition]) BuildOption {
	return func(b *builder) { b.conditions = r }
}

// WithDecoders makes Build reject decode names for which known returns false.
func WithDecoders(known func(name string) bool) BuildOption {
	return func(b *builder) { b.decoders = known }
}

// WithExprOptions passes options to every condition compile.
func WithExprOptions(opts ...expr.Option) BuildOption {
	return func(b *builder) { b.exprOpts = append(b.exprOpts, opts...) }
}

// Build turns the definition into a chain.
func (d *Definition) Build(opts ...BuildOption) (*promptflow.Chain, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	missing, err := parseMissing(d.Missing)
	if err != nil {
		return nil, err
	}
	b.tmplOpts = append(b.tmplOpts, template.WithMissingAction(missing))

	if len(d.Steps) == 0 {
		return nil, ErrNoSteps
	}

	chain := promptflow.NewChain()
	for i := range d.Steps {
		n, err := b.step(&d.Steps[i], fmt.Sprintf("steps[%d]", i))
		if err != nil {
			return nil, err
		}
		chain.Push(n)
	}
	return chain, nil
}

func parseMissing(s string) (template.MissingAction, error) {
	switch strings.ToLower(s) {
	case "", "error":
		return template.MissingError, nil
	case "empty":
		return template.MissingEmpty, nil
	case "keep":
		return template.MissingKeep, nil
	default:
		return 0, fmt.Errorf("missing: unknown action %q (want error, empty or keep)", s)
	}
}

func (b *builder) step(s *Step, path string) (*promptflow.Node, error) {
	fail := func(err error) (*promptflow.Node, error) {
		return nil, &StepError{Path: path, Err: err}
	}

	kinds := 0
	for _, set := range []bool{
		s.Literal != nil,
		s.Template != nil,
		s.If != "" || s.IfFunc != "",
		s.While != "" || s.WhileFunc != "",
	} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return fail(ErrStepKind)
	}

	var (
		n   *promptflow.Node
		err error
	)
	switch {
	case s.Literal != nil:
		n = promptflow.Literal(*s.Literal)
	case s.Template != nil:
		n, err = promptflow.ParseTemplate(*s.Template, b.tmplOpts...)
		if err != nil {
			return fail(err)
		}
	case s.If != "" || s.IfFunc != "":
		n, err = b.conditional(s, path)
		if err != nil {
			return nil, err
		}
	default:
		n, err = b.loop(s, path)
		if err != nil {
			return nil, err
		}
	}

	if n.IsLeaf() {
		n, err = b.leafLabels(n, s)
		if err != nil {
			return fail(err)
		}
	} else if s.Decode != "" || s.SaveAs != "" || s.Incr != "" || len(s.Schema) > 0 {
		return fail(ErrLeafOnly)
	}

	if s.Name != "" {
		n = n.WithName(s.Name)
	}
	return n, nil
}

func (b *builder) conditional(s *Step, path string) (*promptflow.Node, error) {
	cond, err := b.condition(s.If, s.IfFunc)
	if err != nil {
		return nil, &StepError{Path: path + ".if", Err: err}
	}
	if s.Do != nil {
		return nil, &StepError{Path: path, Err: errors.New("if takes then/else, not do")}
	}

	var then, otherwise *promptflow.Node
	if s.Then != nil {
		if then, err = b.step(s.Then, path+".then"); err != nil {
			return nil, err
		}
	}
	if s.Else != nil {
		if otherwise, err = b.step(s.Else, path+".else"); err != nil {
			return nil, err
		}
	}
	n, err := promptflow.NewConditional(cond, then, otherwise)
	if err != nil {
		return nil, &StepError{Path: path, Err: err}
	}
	return n, nil
}

func (b *builder) loop(s *Step, path string) (*promptflow.Node, error) {
	cond, err := b.condition(s.While, s.WhileFunc)
	if err != nil {
		return nil, &StepError{Path: path + ".while", Err: err}
	}
	if s.Then != nil || s.Else != nil {
		return nil, &StepError{Path: path, Err: errors.New("while takes do, not then/else")}
	}

	var body *promptflow.Node
	if s.Do != nil {
		if body, err = b.step(s.Do, path+".do"); err != nil {
			return nil, err
		}
	}
	n, err := promptflow.NewLoop(cond, body)
	if err != nil {
		return nil, &StepError{Path: path, Err: err}
	}
	return n, nil
}

func (b *builder) condition(src, fn string) (promptflow.Condition, error) {
	if src != "" && fn != "" {
		return nil, errors.New("expression and function are mutually exclusive")
	}
	if fn != "" {
		if b.conditions == nil {
			return nil, fmt.Errorf("condition %q: %w (none registered)", fn, registry.ErrNotRegistered)
		}
		return b.conditions.Lookup(fn)
	}
	e, err := expr.Compile(src, b.exprOpts...)
	if err != nil {
		return nil, err
	}
	return func(ctx promptflow.Context) bool { return e.Eval(ctx) }, nil
}

func (b *builder) leafLabels(n *promptflow.Node, s *Step) (*promptflow.Node, error) {
	if s.SaveAs != "" && s.Decode == "" && len(s.Schema) == 0 {
		n = n.WithLabel(LabelDecode, "text")
	}
	if s.Decode != "" {
		if b.decoders != nil && !b.decoders(s.Decode) {
			return nil, fmt.Errorf("%w %q", ErrUnknownDecoder, s.Decode)
		}
		n = n.WithLabel(LabelDecode, s.Decode)
	}
	if s.SaveAs != "" {
		n = n.WithLabel(LabelSaveAs, s.SaveAs)
	}
	if s.Incr != "" {
		n = n.WithLabel(LabelIncr, s.Incr)
	}
	schema, err := s.schemaJSON()
	if err != nil {
		return nil, err
	}
	if schema != "" {
		if s.Decode != "" {
			return nil, errors.New("schema and decode are mutually exclusive")
		}
		n = n.WithLabel(LabelSchema, schema)
	}
	return n, nil
}

// NewContext returns a context seeded with the definition's vars.
func (d *Definition) NewContext() *promptflow.MapContext {
	return promptflow.NewMapContext(d.Vars)
}
