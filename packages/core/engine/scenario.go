package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// runScenario executes one scenario's steps strictly in order, stopping at
// the first non-passing step, and unwinds the disposal stack on every exit
// path.
func (r *Runner) runScenario(ctx context.Context, def *ScenarioDefinition) *ScenarioResult {
	start := time.Now()
	log := r.log.WithField("scenario", def.Name)

	r.reporter.OnScenarioStart(def)
	log.Debug("scenario started")

	sc := newScenarioContext(def)
	stack := newDisposalStack()

	res := &ScenarioResult{
		Name: def.Name,
		Tags: def.Tags,
	}

	var terminal error
	for i, step := range def.Steps {
		if ctx.Err() != nil {
			terminal = context.Cause(ctx)
			// The budget expired between steps; the upcoming step is the
			// one charged with it.
			var st *ScenarioTimeoutError
			if errors.As(terminal, &st) && st.Step == "" {
				st.Step = step.Name
				st.StepIndex = i + 1
			}
			break
		}

		stepRes := r.runStep(ctx, def, sc, stack, step, i+1)
		res.Steps = append(res.Steps, stepRes)

		if stepRes.Status != StatusPassed {
			terminal = stepRes.Err
			break
		}
	}

	// Resources are released even when the scenario was cancelled mid-run;
	// release errors are logged but never change the outcome.
	if stack.len() > 0 {
		_ = stack.unwind(context.WithoutCancel(ctx), log)
	}

	res.Duration = time.Since(start)

	if terminal != nil && IsTimeout(terminal) {
		var st *ScenarioTimeoutError
		if errors.As(terminal, &st) && st.Elapsed == 0 {
			st.Elapsed = res.Duration
		}
		// A fail-fast abort landing in the same instant as a timeout takes
		// precedence: the scenario is skipped, not failed.
		if cause := context.Cause(ctx); isCancellation(cause) {
			terminal = cause
		}
	}

	res.Err = terminal
	switch {
	case terminal == nil:
		res.Status = StatusPassed
	case IsSkip(terminal):
		res.Status = StatusSkipped
	case isCancellation(terminal):
		res.Status = StatusSkipped
	default:
		res.Status = StatusFailed
	}

	r.reporter.OnScenarioEnd(def, res)
	log.WithFields(logrus.Fields{
		"status":   res.Status,
		"steps":    len(res.Steps),
		"duration": res.Duration,
	}).Debug("scenario finished")

	return res
}
