package template

// MissingAction specifies how Render handles a variable that does not resolve.
type MissingAction int

const (
	// MissingError fails the render with *MissingVariableError.
	// This is the default behavior.
	MissingError MissingAction = iota

	// MissingEmpty renders the placeholder as an empty string.
	MissingEmpty

	// MissingKeep renders the placeholder as written ("{name}").
	MissingKeep
)

// Option configures a Template at parse time.
type Option func(*Template)

// WithMissingAction sets how missing variables are handled.
//
// Default: MissingError
//
// Example:
//
//	tmpl, _ := template.Parse("Hi {name}", template.WithMissingAction(template.MissingEmpty))
//	out, _, _ := tmpl.Render(nil)
//	// out: "Hi "
func WithMissingAction(action MissingAction) Option {
	return func(t *Template) {
		t.missing = action
	}
}
