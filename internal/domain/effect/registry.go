package effect

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyName is returned when registering an effect without a name
	ErrEmptyName = errors.New("effect name is empty")
	// ErrNilEffect is returned when registering a nil effect function
	ErrNilEffect = errors.New("effect function is nil")
	// ErrDuplicateEffect is returned when a name is registered twice
	ErrDuplicateEffect = errors.New("effect already registered")
)

// Registry maps normalized effect names to effect functions. It is filled at
// startup and read-only afterwards.
type Registry struct {
	fns map[string]Func
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Func)}
}

// Register adds fn under name
func (r *Registry) Register(name string, fn Func) error {
	key := Normalize(name)
	if key == "" {
		return ErrEmptyName
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilEffect, key)
	}
	if _, ok := r.fns[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEffect, key)
	}
	r.fns[key] = fn
	return nil
}

// MustRegister is Register for startup code; it panics on error
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the effect registered under name
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[Normalize(name)]
	return fn, ok
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.fns[Normalize(name)]
	return ok
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unknown returns the names from the list that nothing is registered under,
// in order and without duplicates
func (r *Registry) Unknown(names []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		key := Normalize(name)
		if r.Has(key) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
