/*
Package promptflow provides declarative prompt chains for LLM conversations.

# Overview

A chain is an ordered list of nodes. Leaves (Literal and Template) produce
prompt text; Conditional and Loop nodes decide, against a mutable Context,
which leaves are offered and how often. Resolution is lazy: a Flow hands
out one leaf at a time, and the caller is free to update the Context
between leaves (usually with a decoded model response) before asking for
the next one.

# Basic Usage

	chain := promptflow.NewChain(
	    promptflow.Literal("You are a terse assistant."),
	    promptflow.MustTemplate("Summarize {topic}."),
	)

	ctx := promptflow.NewMapContext(map[string]any{"topic": "raft"})
	flow := chain.Flow()
	for {
	    leaf, ok := flow.Next(ctx)
	    if !ok {
	        break
	    }
	    text, _, err := leaf.Render(ctx)
	    // ... send text to a model, store the answer in ctx ...
	}

# Branching and Loops

Conditions are plain Go predicates over the Context:

	needsMore := func(c promptflow.Context) bool {
	    n, _ := promptflow.Get[int](c, "rounds")
	    return n < 3
	}

	chain.Push(promptflow.While(needsMore).
	    Do(promptflow.MustTemplate("Round {rounds}: refine the answer.")).
	    MustBuild())

A Conditional is evaluated once, when its position is reached, and then
consumed. A Loop stays at its position for as long as its condition holds
and offers its body on every call; when the condition fails the Loop is
consumed and resolution moves on. Conditions are re-evaluated on every
call, so a Conditional nested in a Loop body can take a different branch
each round.

A Loop whose condition holds but whose body yields nothing is passed over
for that call only. Later siblings may be yielded in the meantime, and the
Loop is reconsidered on the next call.

# Limits

A Loop whose condition never fails would yield forever. Flow stops after
WithMaxIterations leaves yielded from inside live Loops (1000 by default)
and reports a *MaxIterationsError from Err. Leaves outside any Loop are
not counted.

# Execution

Resolution never talks to a model. Package execute binds a leaf to a
model roster and a response decoder, runs it through an llm.Client, and
retries failures through a Dispatcher. Package runner drives a whole
chain end to end.

# Thread Safety

Nodes are immutable once built and may be shared. A Chain must not be
pushed to while a Flow is created from it. A Flow and its Context belong
to one goroutine.
*/
package promptflow
