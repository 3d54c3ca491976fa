package promptflow

// Chain is an ordered, append-only sequence of top-level nodes.
//
// Chain is NOT safe for concurrent use. Build it on one goroutine, then
// resolve it with Flow.
//
// Example:
//
//	chain := promptflow.NewChain().
//	    Push(promptflow.Literal("You are a careful reviewer.")).
//	    Push(promptflow.MustTemplate("Review {file}."))
type Chain struct {
	nodes []*Node
}

// NewChain creates a chain holding nodes in order.
// Panics if any node is nil.
func NewChain(nodes ...*Node) *Chain {
	c := &Chain{}
	for _, n := range nodes {
		c.Push(n)
	}
	return c
}

// Push appends a node and returns the chain for method chaining.
// Panics if n is nil.
func (c *Chain) Push(n *Node) *Chain {
	if n == nil {
		panic("promptflow: cannot push nil node")
	}
	c.nodes = append(c.nodes, n)
	return c
}

// Len returns the number of top-level nodes.
func (c *Chain) Len() int {
	return len(c.nodes)
}

// Nodes returns a copy of the top-level nodes.
func (c *Chain) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Flow starts a resolution pass over the chain.
// The flow sees the nodes pushed before this call.
func (c *Chain) Flow(opts ...FlowOption) *Flow {
	cfg := defaultFlowConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	nodes := c.nodes[:len(c.nodes):len(c.nodes)]
	return &Flow{
		nodes:    nodes,
		consumed: make([]bool, len(nodes)),
		cfg:      cfg,
	}
}
