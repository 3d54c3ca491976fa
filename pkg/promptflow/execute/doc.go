/*
Package execute runs prompt leaves against a model and recovers from failures.

# Execution

A Binding ties a leaf to an ordered model roster and a Decoder. Execute
renders the leaf against the context, sends one completion request through
an llm.Client and decodes the response:

	b := execute.Binding[Answer]{
	    Node:   leaf,
	    Models: []string{"gpt-4o-mini", "gpt-4o"},
	    Decode: decode.JSON[Answer]("answer"),
	}
	res := execute.Execute(ctx, b, pctx, client)

Every failure is classified into the taxonomy of package errors and kept
on the Result together with everything needed to try again: the binding,
the context, the client and the model index in use.

A leaf that renders to nothing (an empty Literal or Template) is a
successful step with a nil value. No request is sent.

# Recovery

Result.Retry hands a failed result to a Dispatcher:

	v, err := res.Retry(ctx, execute.DefaultBudget)

The dispatcher classifies the failure, then retries on the same model,
moves to the next model in the roster, or waits and retries, until an
attempt succeeds, the failure is fatal, or the budget is spent. The budget
counts retries only; the initial Execute call is not part of it.

	Fatal failure             returned unchanged
	Budget spent              *errors.RetryBudgetExceededError wrapping the last failure
	Canceled during a delay   ctx.Err() joined with the last failure

# Context Ownership

Execute never writes to the context itself; decoders may. The context is
threaded through every retry, so writes made by a decoder on a failed
attempt remain visible to the next one.
*/
package execute
