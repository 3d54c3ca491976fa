package template

import (
	"fmt"
	"strings"
)

// Vars resolves template variables to their string form.
type Vars interface {
	TemplateVar(name string) (string, bool)
}

// Map is a Vars backed by a plain map.
type Map map[string]string

// TemplateVar implements Vars.
func (m Map) TemplateVar(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// MissingVariableError is returned when a referenced variable does not resolve.
type MissingVariableError struct {
	// Name is the unresolved variable.
	Name string
}

// Error implements the error interface.
func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing variable in context: %s", e.Name)
}

// Render produces the prompt text.
//
// ok is false when the template has no parts ("no prompt"); the returned
// error is non-nil only for a missing variable under MissingError.
func (t *Template) Render(vars Vars) (text string, ok bool, err error) {
	if len(t.parts) == 0 {
		return "", false, nil
	}
	if len(t.parts) == 1 && !t.parts[0].IsVar() {
		return t.parts[0].Text, true, nil
	}

	var b strings.Builder
	for _, p := range t.parts {
		if !p.IsVar() {
			b.WriteString(p.Text)
			continue
		}
		var (
			val   string
			found bool
		)
		if vars != nil {
			val, found = vars.TemplateVar(p.Var)
		}
		if found {
			b.WriteString(val)
			continue
		}
		switch t.missing {
		case MissingEmpty:
		case MissingKeep:
			b.WriteString("{" + p.Var + "}")
		default:
			return "", false, &MissingVariableError{Name: p.Var}
		}
	}
	return b.String(), true, nil
}
