package template

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for template parsing.
var (
	// ErrBraceMismatch indicates an unmatched "{" or "}" or a brace inside a variable.
	ErrBraceMismatch = errors.New("brace mismatch")

	// ErrEmptyVariable indicates a "{}" placeholder with no variable name.
	ErrEmptyVariable = errors.New("empty variable")
)

// SyntaxError reports where parsing failed.
type SyntaxError struct {
	// Pos is the byte offset of the offending brace.
	Pos int
	// Err is ErrBraceMismatch or ErrEmptyVariable.
	Err error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: %v at offset %d", e.Err, e.Pos)
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Part is one segment of a parsed template. Exactly one of Text or Var is set.
type Part struct {
	Text string
	Var  string
}

// IsVar reports whether the part is a variable reference.
func (p Part) IsVar() bool {
	return p.Var != ""
}

// Template is a parsed prompt template.
type Template struct {
	source  string
	parts   []Part
	missing MissingAction
}

// Parse splits s into text and variable parts.
//
// Example:
//
//	tmpl, err := template.Parse("Translate {text} into {language}.")
func Parse(s string, opts ...Option) (*Template, error) {
	t := &Template{source: s, missing: MissingError}
	for _, opt := range opts {
		opt(t)
	}

	var (
		buf     strings.Builder
		inVar   bool
		openPos int
	)

	flushText := func() {
		if buf.Len() > 0 {
			t.parts = append(t.parts, Part{Text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if inVar {
				return nil, &SyntaxError{Pos: i, Err: ErrBraceMismatch}
			}
			if i+1 < len(s) && s[i+1] == '{' {
				buf.WriteByte('{')
				i++
				continue
			}
			flushText()
			inVar = true
			openPos = i
		case '}':
			if inVar {
				name := strings.TrimSpace(buf.String())
				buf.Reset()
				if name == "" {
					return nil, &SyntaxError{Pos: openPos, Err: ErrEmptyVariable}
				}
				t.parts = append(t.parts, Part{Var: name})
				inVar = false
				continue
			}
			if i+1 < len(s) && s[i+1] == '}' {
				buf.WriteByte('}')
				i++
				continue
			}
			return nil, &SyntaxError{Pos: i, Err: ErrBraceMismatch}
		default:
			buf.WriteByte(c)
		}
	}

	if inVar {
		return nil, &SyntaxError{Pos: openPos, Err: ErrBraceMismatch}
	}
	flushText()

	return t, nil
}

// MustParse is like Parse but panics on a syntax error.
// Intended for templates written as constants.
func MustParse(s string, opts ...Option) *Template {
	t, err := Parse(s, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source as given to Parse.
func (t *Template) String() string {
	return t.source
}

// Parts returns a copy of the parsed parts.
func (t *Template) Parts() []Part {
	parts := make([]Part, len(t.parts))
	copy(parts, t.parts)
	return parts
}

// Variables returns the distinct variable names in order of first use.
func (t *Template) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range t.parts {
		if p.IsVar() && !seen[p.Var] {
			seen[p.Var] = true
			names = append(names, p.Var)
		}
	}
	return names
}
