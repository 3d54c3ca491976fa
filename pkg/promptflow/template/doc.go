/*
Package template parses and renders prompt templates.

# Overview

A template is plain text with {name} placeholders. Parse splits the text
into an ordered list of parts (fixed text and variable references) once;
Render resolves the variables against a Vars source every time it is
called, so the same parsed template can be rendered against a context that
changes between steps.

# Syntax

	Summarize {topic} in {count} bullet points.

Literal braces are written doubled:

	Return JSON like {{"answer": "{answer}"}}
	// renders: Return JSON like {"answer": "42"}

Parse reports malformed input as a *SyntaxError wrapping ErrBraceMismatch
(an unmatched or nested brace) or ErrEmptyVariable ("{}").

# Missing Variables

By default a variable that cannot be resolved fails the render with a
*MissingVariableError. Other behavior can be selected per template:

	tmpl, _ := template.Parse("Hello {name}", template.WithMissingAction(template.MissingKeep))
	out, _, _ := tmpl.Render(template.Map{})
	// out: "Hello {name}"

# Empty Templates

A template with no parts renders to "no prompt": Render returns ok=false
and no error. Callers treat that as an intentionally empty step.

# Thread Safety

A parsed Template is immutable and safe for concurrent use. Concurrency
safety of rendering depends on the Vars implementation.
*/
package template
