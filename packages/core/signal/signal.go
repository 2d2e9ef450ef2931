// Package signal composes cancellation sources into a single derived context.
//
// The engine combines run-wide external cancellation, fail-fast aborts and
// per-scenario timeouts without caring which source fires first; Any is the
// one place that wiring lives.
package signal

import "context"

// Any returns a context that is cancelled as soon as any of the given
// parents is cancelled, carrying the winning parent's cause. If a parent is
// already cancelled the returned context starts out cancelled with that
// parent's cause. Nil parents are ignored; with no parents the context never
// fires on its own.
//
// The returned CancelCauseFunc must be called to release watchers. It also
// serves as a direct cancellation controller: calling it with a cause cancels
// the derived context immediately (first cause wins, later calls are no-ops).
func Any(parents ...context.Context) (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())

	var stops []func() bool
	for _, parent := range parents {
		if parent == nil {
			continue
		}
		if parent.Err() != nil {
			cancel(context.Cause(parent))
			break
		}
		p := parent
		stops = append(stops, context.AfterFunc(p, func() {
			cancel(context.Cause(p))
		}))
	}

	return ctx, func(cause error) {
		cancel(cause)
		for _, stop := range stops {
			stop()
		}
	}
}
