package promptflow

import (
	"github.com/randalmurphal/promptflow/pkg/promptflow/observability"
)

// Flow resolves a Chain into a sequence of leaves.
//
// Every call to Next re-descends from the top-level node at the cursor,
// re-evaluating every condition on the way, so context mutations made
// between calls are always observed. The cursor only moves forward.
//
// A Flow is used by one goroutine, together with one Context.
type Flow struct {
	nodes    []*Node
	consumed []bool
	cursor   int
	yielded  int
	rounds   int
	cfg      flowConfig
	err      error
}

// Next returns the next leaf to execute, or (nil, false) when no
// top-level node can currently yield one.
//
// A top-level node is consumed once it yields a leaf or fails to yield
// one, except when the descent passed through a Loop whose condition
// held: such a Loop stays live and is offered again on the next call.
// A live Loop whose body yields nothing this call is skipped over, and
// the same call falls through to the entries after it.
func (f *Flow) Next(ctx Context) (*Node, bool) {
	if f.err != nil {
		return nil, false
	}

	for i := f.cursor; i < len(f.nodes); i++ {
		if f.consumed[i] {
			continue
		}

		leaf, live := descend(f.nodes[i], ctx)
		if leaf == nil {
			if live {
				observability.LogFlowSkip(f.cfg.logger, i, "loop body idle")
				continue
			}
			observability.LogFlowSkip(f.cfg.logger, i, "no branch taken")
			f.consume(i)
			continue
		}

		if live {
			if f.rounds >= f.cfg.maxIterations {
				f.err = &MaxIterationsError{Max: f.cfg.maxIterations, Position: i}
				return nil, false
			}
			f.rounds++
		} else {
			f.consume(i)
		}
		f.yielded++
		observability.LogFlowYield(f.cfg.logger, i, leaf.kind.String(), leaf.name, live)
		return leaf, true
	}

	observability.LogFlowExhausted(f.cfg.logger, f.yielded, f.Done())
	return nil, false
}

// descend walks from n down to a leaf. live reports whether the walk
// passed through a Loop whose condition held.
func descend(n *Node, ctx Context) (leaf *Node, live bool) {
	for {
		switch n.kind {
		case KindLiteral, KindTemplate:
			return n, live
		case KindConditional:
			switch {
			case n.cond(ctx):
				n = n.then
			case n.otherwise != nil:
				n = n.otherwise
			default:
				return nil, live
			}
		case KindLoop:
			if !n.cond(ctx) {
				return nil, live
			}
			live = true
			n = n.body
		default:
			return nil, live
		}
	}
}

func (f *Flow) consume(i int) {
	f.consumed[i] = true
	for f.cursor < len(f.nodes) && f.consumed[f.cursor] {
		f.cursor++
	}
}

// Done reports whether every top-level node has been consumed.
func (f *Flow) Done() bool {
	return f.cursor >= len(f.nodes)
}

// Err returns the error that stopped the flow, if any.
func (f *Flow) Err() error {
	return f.err
}

// Rounds returns the number of leaves yielded from inside a live Loop.
// It is the count WithMaxIterations bounds.
func (f *Flow) Rounds() int {
	return f.rounds
}

// Yielded returns the number of leaves returned so far.
func (f *Flow) Yielded() int {
	return f.yielded
}

// Cursor returns the index of the first top-level node not yet consumed.
func (f *Flow) Cursor() int {
	return f.cursor
}
