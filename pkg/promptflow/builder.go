package promptflow

// IfBuilder assembles a Conditional node.
//
// Example:
//
//	node, err := promptflow.If(needsSummary).
//	    Then(promptflow.Literal("Summarize the thread.")).
//	    Else(promptflow.Literal("Answer directly.")).
//	    Build()
type IfBuilder struct {
	cond      Condition
	then      *Node
	otherwise *Node
}

// If starts a Conditional builder.
func If(cond Condition) *IfBuilder {
	return &IfBuilder{cond: cond}
}

// Then sets the branch taken when the condition holds.
func (b *IfBuilder) Then(n *Node) *IfBuilder {
	b.then = n
	return b
}

// Else sets the branch taken when the condition fails.
func (b *IfBuilder) Else(n *Node) *IfBuilder {
	b.otherwise = n
	return b
}

// Build returns the Conditional, or a *BuildError wrapping
// ErrMissingCondition or ErrMissingThen.
func (b *IfBuilder) Build() (*Node, error) {
	return NewConditional(b.cond, b.then, b.otherwise)
}

// MustBuild is like Build but panics on error.
func (b *IfBuilder) MustBuild() *Node {
	n, err := b.Build()
	if err != nil {
		panic("promptflow: " + err.Error())
	}
	return n
}

// LoopBuilder assembles a Loop node.
//
// Example:
//
//	node := promptflow.While(func(c promptflow.Context) bool {
//	    n, _ := promptflow.Get[int](c, "round")
//	    return n < 3
//	}).Do(promptflow.MustTemplate("Round {round}: continue.")).MustBuild()
type LoopBuilder struct {
	cond Condition
	body *Node
}

// While starts a Loop builder.
func While(cond Condition) *LoopBuilder {
	return &LoopBuilder{cond: cond}
}

// Do sets the loop body.
func (b *LoopBuilder) Do(n *Node) *LoopBuilder {
	b.body = n
	return b
}

// Build returns the Loop, or a *BuildError wrapping
// ErrMissingCondition or ErrMissingBody.
func (b *LoopBuilder) Build() (*Node, error) {
	return NewLoop(b.cond, b.body)
}

// MustBuild is like Build but panics on error.
func (b *LoopBuilder) MustBuild() *Node {
	n, err := b.Build()
	if err != nil {
		panic("promptflow: " + err.Error())
	}
	return n
}
