package promptflow

import (
	"maps"

	"github.com/randalmurphal/promptflow/pkg/promptflow/template"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	// KindLiteral is a fixed prompt string.
	KindLiteral Kind = iota

	// KindTemplate is a prompt with {var} placeholders.
	KindTemplate

	// KindConditional routes to then or otherwise.
	KindConditional

	// KindLoop re-offers its body while the condition holds.
	KindLoop
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindTemplate:
		return "template"
	case KindConditional:
		return "conditional"
	case KindLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Condition is a pure predicate over the context.
// It is evaluated every time its node is reached and must not mutate ctx.
type Condition func(ctx Context) bool

// Node is one element of a prompt tree.
//
// Nodes are immutable once built. Literal and Template nodes are leaves;
// Conditional and Loop nodes own their child nodes.
type Node struct {
	kind   Kind
	name   string
	labels map[string]string

	text string
	tmpl *template.Template

	cond      Condition
	then      *Node
	otherwise *Node
	body      *Node
}

// Literal creates a leaf with fixed text.
func Literal(text string) *Node {
	return &Node{kind: KindLiteral, text: text}
}

// Template creates a leaf from a parsed template.
// Panics if t is nil.
func Template(t *template.Template) *Node {
	if t == nil {
		panic("promptflow: template cannot be nil")
	}
	return &Node{kind: KindTemplate, tmpl: t}
}

// ParseTemplate parses s and returns a Template leaf.
func ParseTemplate(s string, opts ...template.Option) (*Node, error) {
	t, err := template.Parse(s, opts...)
	if err != nil {
		return nil, err
	}
	return Template(t), nil
}

// MustTemplate is like ParseTemplate but panics on a syntax error.
func MustTemplate(s string, opts ...template.Option) *Node {
	return Template(template.MustParse(s, opts...))
}

// NewConditional creates a Conditional node. otherwise may be nil.
func NewConditional(cond Condition, then, otherwise *Node) (*Node, error) {
	if cond == nil {
		return nil, &BuildError{Kind: KindConditional, Err: ErrMissingCondition}
	}
	if then == nil {
		return nil, &BuildError{Kind: KindConditional, Err: ErrMissingThen}
	}
	return &Node{kind: KindConditional, cond: cond, then: then, otherwise: otherwise}, nil
}

// NewLoop creates a Loop node.
func NewLoop(cond Condition, body *Node) (*Node, error) {
	if cond == nil {
		return nil, &BuildError{Kind: KindLoop, Err: ErrMissingCondition}
	}
	if body == nil {
		return nil, &BuildError{Kind: KindLoop, Err: ErrMissingBody}
	}
	return &Node{kind: KindLoop, cond: cond, body: body}, nil
}

// WithName returns a copy of n carrying a name used in logs and journals.
func (n *Node) WithName(name string) *Node {
	cp := n.clone()
	cp.name = name
	return cp
}

// WithLabel returns a copy of n with an extra label.
// Labels are free-form metadata; resolution ignores them.
func (n *Node) WithLabel(key, value string) *Node {
	cp := n.clone()
	if cp.labels == nil {
		cp.labels = make(map[string]string)
	}
	cp.labels[key] = value
	return cp
}

func (n *Node) clone() *Node {
	cp := *n
	cp.labels = maps.Clone(n.labels)
	return &cp
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node name, or "" if unnamed.
func (n *Node) Name() string { return n.name }

// Label returns the label value for key.
func (n *Node) Label(key string) (string, bool) {
	v, ok := n.labels[key]
	return v, ok
}

// Labels returns a copy of all labels.
func (n *Node) Labels() map[string]string { return maps.Clone(n.labels) }

// IsLeaf reports whether n is a Literal or Template.
func (n *Node) IsLeaf() bool {
	return n.kind == KindLiteral || n.kind == KindTemplate
}

// Text returns the literal text. Empty for other kinds.
func (n *Node) Text() string { return n.text }

// Tmpl returns the parsed template of a Template node, or nil.
func (n *Node) Tmpl() *template.Template { return n.tmpl }

// Then returns the then branch of a Conditional.
func (n *Node) Then() *Node { return n.then }

// Otherwise returns the otherwise branch of a Conditional, or nil.
func (n *Node) Otherwise() *Node { return n.otherwise }

// Body returns the body of a Loop.
func (n *Node) Body() *Node { return n.body }

// Holds evaluates the node's condition. Leaves always hold.
func (n *Node) Holds(ctx Context) bool {
	if n.cond == nil {
		return true
	}
	return n.cond(ctx)
}

// Render produces the prompt text of a leaf.
//
// ok is false for "no prompt": an empty Literal or a Template with no
// parts. Rendering a Conditional or Loop fails with ErrNotLeaf.
func (n *Node) Render(vars template.Vars) (text string, ok bool, err error) {
	switch n.kind {
	case KindLiteral:
		if n.text == "" {
			return "", false, nil
		}
		return n.text, true, nil
	case KindTemplate:
		return n.tmpl.Render(vars)
	default:
		return "", false, ErrNotLeaf
	}
}

// Describe returns the name if set, otherwise the kind.
func (n *Node) Describe() string {
	if n.name != "" {
		return n.name
	}
	return n.kind.String()
}
