// Package registry holds named values that chain files refer to by name,
// such as response decoders and Go-defined conditions.
//
//	decoders := registry.New[execute.Decoder[any]]("decoder")
//	decoders.MustAdd("verdict", decode.Text("verdict"))
//
//	d, err := decoders.Lookup("verdict")
//
// A Registry is safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrNotRegistered is returned by Lookup for an unknown name.
	ErrNotRegistered = errors.New("not registered")

	// ErrDuplicate is returned by Add when the name is taken.
	ErrDuplicate = errors.New("already registered")

	// ErrEmptyName is returned by Add for an empty name.
	ErrEmptyName = errors.New("empty name")
)

// Registry maps names to values of one kind.
type Registry[V any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]V
}

// New creates an empty registry. kind names what it holds and appears in
// error messages ("decoder", "condition").
func New[V any](kind string) *Registry[V] {
	return &Registry[V]{
		kind:    kind,
		entries: make(map[string]V),
	}
}

// Kind returns the kind given to New.
func (r *Registry[V]) Kind() string { return r.kind }

// Add registers v under name. Names are unique.
func (r *Registry[V]) Add(name string, v V) error {
	if name == "" {
		return fmt.Errorf("%s: %w", r.kind, ErrEmptyName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%s %q: %w", r.kind, name, ErrDuplicate)
	}
	r.entries[name] = v
	return nil
}

// MustAdd is like Add but panics on error.
func (r *Registry[V]) MustAdd(name string, v V) *Registry[V] {
	if err := r.Add(name, v); err != nil {
		panic("registry: " + err.Error())
	}
	return r
}

// Replace registers v under name, overwriting any previous value.
func (r *Registry[V]) Replace(name string, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = v
}

// Get returns the value for name and whether it exists.
func (r *Registry[V]) Get(name string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[name]
	return v, ok
}

// Lookup returns the value for name, or an error wrapping
// ErrNotRegistered that lists the known names.
func (r *Registry[V]) Lookup(name string) (V, error) {
	if v, ok := r.Get(name); ok {
		return v, nil
	}
	var zero V
	known := r.Names()
	if len(known) == 0 {
		return zero, fmt.Errorf("%s %q: %w (none registered)", r.kind, name, ErrNotRegistered)
	}
	return zero, fmt.Errorf("%s %q: %w (known: %s)", r.kind, name, ErrNotRegistered, strings.Join(known, ", "))
}

// MustGet returns the value for name, panicking if it is not registered.
func (r *Registry[V]) MustGet(name string) V {
	v, err := r.Lookup(name)
	if err != nil {
		panic("registry: " + err.Error())
	}
	return v
}

// Has reports whether name is registered.
func (r *Registry[V]) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name.
func (r *Registry[V]) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Names returns the registered names in sorted order.
func (r *Registry[V]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of entries.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range calls fn for each entry in name order over a snapshot, stopping
// when fn returns false. fn may modify the registry.
func (r *Registry[V]) Range(fn func(name string, v V) bool) {
	r.mu.RLock()
	snapshot := maps.Clone(r.entries)
	r.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(snapshot)) {
		if !fn(name, snapshot[name]) {
			return
		}
	}
}
