package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
)

// runStep executes one step through the retry loop, applying a fresh
// per-attempt deadline, and classifies the terminal outcome.
func (r *Runner) runStep(ctx context.Context, def *ScenarioDefinition, sc *ScenarioContext, stack *disposalStack, step *StepDefinition, index int) *StepResult {
	stepCtx := sc.stepContext(index)
	timeout := r.cfg.stepTimeout(step)
	policy := r.cfg.retryPolicy(step)

	r.reporter.OnStepStart(def, step, index)

	res := &StepResult{
		Name:  step.Name,
		Kind:  step.Kind,
		Index: index,
	}

	start := time.Now()
	attempts := 0
	var attemptStart time.Time

	value, err := retry.Do(ctx, policy, func(err error, next int) bool {
		// Timeouts and deliberate skips never earn another attempt.
		return !IsTimeout(err) && !IsSkip(err)
	}, func(ctx context.Context, attempt int) (any, error) {
		attempts = attempt
		attemptStart = time.Now()
		if attempt > 1 {
			r.log.WithField("scenario", def.Name).
				WithField("step", step.Name).
				WithField("attempt", attempt).
				Debug("retrying step")
		}
		actx, cancel := context.WithTimeoutCause(ctx, timeout,
			&StepTimeoutError{Step: step.Name, Timeout: timeout})
		defer cancel()
		return r.invoke(actx, stepCtx, sc, stack, step)
	})

	res.Duration = time.Since(start)
	res.Attempts = attempts

	switch {
	case err == nil:
		res.Status = StatusPassed
		res.Value = value
	case IsSkip(err):
		res.Status = StatusSkipped
		res.Err = err
	case isCancellation(err):
		res.Status = StatusSkipped
		res.Err = err
	default:
		res.Status = StatusFailed
		res.Err = enrichTimeout(err, step, index, attempts, time.Since(attemptStart))
	}

	r.reporter.OnStepEnd(def, step, res)
	return res
}

// invoke races the step's work function against the attempt context and, on
// success, registers the produced value according to the step kind.
// Cancellation is advisory: the work keeps running after the context fires,
// but its result is discarded.
func (r *Runner) invoke(ctx context.Context, stepCtx *StepContext, sc *ScenarioContext, stack *disposalStack, step *StepDefinition) (any, error) {
	type outcome struct {
		value any
		err   error
	}
	out := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				out <- outcome{err: fmt.Errorf("step %q panicked: %v", step.Name, p)}
			}
		}()
		v, err := step.Fn(ctx, stepCtx)
		out <- outcome{value: v, err: err}
	}()

	select {
	case o := <-out:
		if o.err != nil {
			return nil, o.err
		}
		r.register(sc, stack, step, o.value)
		return o.value, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func (r *Runner) register(sc *ScenarioContext, stack *disposalStack, step *StepDefinition, value any) {
	switch step.Kind {
	case KindResource:
		if release := releaseFunc(value); release != nil {
			stack.push(step.Name, release)
		}
		// Registered even when the value has nothing to release, so later
		// steps can look it up by name.
		sc.setResource(step.Name, value)
	case KindSetup:
		if value == nil {
			return
		}
		if release := releaseFunc(value); release != nil {
			stack.push(step.Name, release)
		}
	case KindStep:
		sc.appendResult(value)
	}
}

// enrichTimeout backfills attempt and elapsed data on a step timeout, or the
// active step on an inherited scenario timeout. A scenario-timeout cause
// that already carries step context is preserved as-is.
func enrichTimeout(err error, step *StepDefinition, index, attempt int, attemptElapsed time.Duration) error {
	var scenario *ScenarioTimeoutError
	if errors.As(err, &scenario) {
		if scenario.Step == "" {
			scenario.Step = step.Name
			scenario.StepIndex = index
		}
		return err
	}

	var st *StepTimeoutError
	if errors.As(err, &st) {
		st.Attempt = attempt
		st.Elapsed = attemptElapsed
		return err
	}

	return err
}
