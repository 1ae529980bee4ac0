package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEngine means no backend registered under the requested
	// name.
	ErrUnknownEngine = errors.New("engine: unknown backend")

	// ErrNotAvailable means the backend exists but cannot run here.
	ErrNotAvailable = errors.New("engine: backend not available on this host")

	// ErrNoResults means a result database held no usable data for the
	// requested step.
	ErrNoResults = errors.New("engine: no results in database")
)

// SelectionError reports a geometric node selection that matched
// nothing, carrying the tolerance so the operator can widen it.
type SelectionError struct {
	Region string
	Tol    float64
	Hint   string
}

func (e *SelectionError) Error() string {
	msg := fmt.Sprintf("engine: selection %q matched no nodes (tol %g)", e.Region, e.Tol)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}
