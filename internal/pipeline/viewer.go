package pipeline

import (
	"context"
	"time"

	"github.com/steelspec/bucklab/internal/engine"
)

// WaitForViewer polls a shared post-processing viewer until it is free
// or the wait budget runs out. Timing out is not an error: the caller
// proceeds and lets the export contend for the lock.
func WaitForViewer(ctx context.Context, v engine.Viewer, wait, poll time.Duration) (bool, error) {
	deadline := time.Now().Add(wait)
	for {
		busy, err := v.Busy(ctx)
		if err != nil {
			return false, err
		}
		if !busy {
			return true, nil
		}
		if wait <= 0 || time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(poll):
		}
	}
}
