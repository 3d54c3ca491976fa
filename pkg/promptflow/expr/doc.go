/*
Package expr compiles condition expressions for chain files.

# Overview

Conditional and Loop nodes declared in YAML carry their condition as a
string. expr compiles that string once and evaluates it against the
chain's context every time the node is visited.

# Expression Syntax

	<expr>    := <or>
	<or>      := <and> ('or' <and>)*
	<and>     := <unary> ('and' <unary>)*
	<unary>   := ('not' | '!') <unary> | <cmp>
	<cmp>     := <operand> [<op> <operand>]
	<operand> := '(' <expr> ')' | 'string' | "string" | number
	           | true | false | null | identifier
	<op>      := '==' | '!=' | '<' | '>' | '<=' | '>=' | 'contains' | custom

Identifiers may be dotted paths into nested maps: review.score > 3.

# Operators

	==         Equal (string comparison)
	!=         Not equal (string comparison)
	<  >       Numeric comparison
	<= >=      Numeric comparison
	contains   String contains substring

# Values

An identifier that is not set in the context evaluates to its own name, so
unquoted words compare as strings:

	status == done        // same as status == 'done'

A lone operand is tested for truthiness: nil, false, "" and zero are
false, everything else is true.

# Example

	e, err := expr.Compile("round < 3 and not approved")
	if err != nil {
	    return err
	}
	ok := e.Eval(ctx) // ctx is any Vars, e.g. a promptflow.Context
*/
package expr
