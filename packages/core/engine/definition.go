package engine

import (
	"context"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
)

// StepKind tags the kinds of steps a scenario is built from.
type StepKind string

const (
	// KindResource acquires a value that may need explicit release at
	// scenario end. The value is registered in the scenario's resource map
	// and, when it exposes a release capability, pushed on the disposal
	// stack.
	KindResource StepKind = "resource"
	// KindSetup performs side effects and may return a cleanup action to be
	// deferred on the disposal stack.
	KindSetup StepKind = "setup"
	// KindStep performs the actual test action; its value is appended to
	// the scenario's result history.
	KindStep StepKind = "step"
)

// StepFunc is the unit of work a step executes. Work functions must observe
// ctx to stop promptly; cancellation is advisory and a fired context only
// causes the bounding operation to give up on the attempt.
type StepFunc func(ctx context.Context, sc *StepContext) (any, error)

// StepDefinition describes one unit of work within a scenario.
type StepDefinition struct {
	Name string
	Kind StepKind
	Fn   StepFunc

	// Timeout bounds a single attempt. Zero inherits the run-wide step
	// default; each retry attempt receives a fresh budget.
	Timeout time.Duration
	// Retry overrides the run-wide retry policy for this step. Nil inherits.
	Retry *retry.Policy
}

// ScenarioDefinition is an ordered sequence of steps representing one test
// case. Definitions are owned by the caller and read-only to the engine.
type ScenarioDefinition struct {
	Name string
	Tags []string
	// Timeout bounds cumulative time across all steps of the scenario. Zero
	// inherits the run-wide default; zero there too means unbounded.
	Timeout time.Duration
	Steps   []*StepDefinition
}

// HasTag reports whether the scenario carries the given tag.
func (d *ScenarioDefinition) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
