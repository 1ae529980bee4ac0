package engine

import (
	"fmt"
	"sort"
)

// DefaultName is the backend used when no engine is configured.
const DefaultName = "sandbox"

// Factory builds a backend instance.
type Factory func() Engine

var factories = map[string]Factory{}

// Register adds a backend under its name. Later registrations replace
// earlier ones, which tests use to install doubles.
func Register(name string, f Factory) {
	factories[name] = f
}

// Get instantiates the named backend, falling back to the default when
// name is empty. Unavailable backends are refused here so failures
// surface before any job is built.
func Get(name string) (Engine, error) {
	if name == "" {
		name = DefaultName
	}
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownEngine, name, Names())
	}
	eng := f()
	if !eng.Available() {
		return nil, fmt.Errorf("%w: %q", ErrNotAvailable, name)
	}
	return eng, nil
}

// Names lists the registered backends sorted alphabetically.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
