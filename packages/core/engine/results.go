package engine

import "time"

// Status classifies the terminal outcome of a step, scenario or run entry.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records the terminal outcome of one step.
type StepResult struct {
	Name     string
	Kind     StepKind
	Index    int // 1-based position within the scenario
	Status   Status
	Duration time.Duration
	Attempts int
	Value    any
	Err      error
}

// ScenarioResult records the terminal outcome of one scenario. Steps holds
// results in execution order; steps after the first non-passing one never
// ran and have no entry.
type ScenarioResult struct {
	Name     string
	Tags     []string
	Status   Status
	Duration time.Duration
	Steps    []*StepResult
	Err      error
}

// RunResult aggregates one run. Scenarios preserves input order, including
// skipped entries for scenarios that never started.
type RunResult struct {
	RunID     string
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Scenarios []*ScenarioResult
}

// Ok reports whether the run completed without failures.
func (r *RunResult) Ok() bool {
	return r.Failed == 0
}
