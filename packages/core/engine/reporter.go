package engine

// Reporter receives lifecycle notifications bracketing runs, scenarios and
// steps. Callbacks are best-effort: the engine waits for them to return but
// never alters behavior based on them. Scenario and step callbacks are
// invoked concurrently for scenarios running in the same batch, so
// implementations must be safe for concurrent use.
type Reporter interface {
	OnRunStart(scenarios []*ScenarioDefinition)
	OnScenarioStart(scenario *ScenarioDefinition)
	OnStepStart(scenario *ScenarioDefinition, step *StepDefinition, index int)
	OnStepEnd(scenario *ScenarioDefinition, step *StepDefinition, result *StepResult)
	OnScenarioEnd(scenario *ScenarioDefinition, result *ScenarioResult)
	OnRunEnd(result *RunResult)
}

// NopReporter ignores all notifications. Embed it to implement only the
// callbacks a reporter cares about.
type NopReporter struct{}

func (NopReporter) OnRunStart([]*ScenarioDefinition)                            {}
func (NopReporter) OnScenarioStart(*ScenarioDefinition)                         {}
func (NopReporter) OnStepStart(*ScenarioDefinition, *StepDefinition, int)       {}
func (NopReporter) OnStepEnd(*ScenarioDefinition, *StepDefinition, *StepResult) {}
func (NopReporter) OnScenarioEnd(*ScenarioDefinition, *ScenarioResult)          {}
func (NopReporter) OnRunEnd(*RunResult)                                         {}

type multiReporter []Reporter

// Multi fans notifications out to several reporters in order.
func Multi(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

func (m multiReporter) OnRunStart(s []*ScenarioDefinition) {
	for _, r := range m {
		r.OnRunStart(s)
	}
}

func (m multiReporter) OnScenarioStart(sc *ScenarioDefinition) {
	for _, r := range m {
		r.OnScenarioStart(sc)
	}
}

func (m multiReporter) OnStepStart(sc *ScenarioDefinition, st *StepDefinition, index int) {
	for _, r := range m {
		r.OnStepStart(sc, st, index)
	}
}

func (m multiReporter) OnStepEnd(sc *ScenarioDefinition, st *StepDefinition, res *StepResult) {
	for _, r := range m {
		r.OnStepEnd(sc, st, res)
	}
}

func (m multiReporter) OnScenarioEnd(sc *ScenarioDefinition, res *ScenarioResult) {
	for _, r := range m {
		r.OnScenarioEnd(sc, res)
	}
}

func (m multiReporter) OnRunEnd(res *RunResult) {
	for _, r := range m {
		r.OnRunEnd(res)
	}
}
