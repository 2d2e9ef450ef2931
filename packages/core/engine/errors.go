package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SkipError is a deliberate, non-failure termination signal. A step work
// function returns one (via Skip) to mean "this scenario does not apply";
// the scenario ends as skipped, never as failed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	if e.Reason == "" {
		return "scenario skipped"
	}
	return "scenario skipped: " + e.Reason
}

// Skip returns a SkipError with the given reason.
func Skip(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// IsSkip reports whether err is (or wraps) a SkipError.
func IsSkip(err error) bool {
	var se *SkipError
	return errors.As(err, &se)
}

// StepTimeoutError is raised when a single attempt exceeds its resolved
// timeout. Attempt and Elapsed are filled in by the step runner once the
// attempt is classified. Step timeouts are never retried.
type StepTimeoutError struct {
	Step    string
	Timeout time.Duration
	Attempt int
	Elapsed time.Duration
}

func (e *StepTimeoutError) Error() string {
	msg := fmt.Sprintf("step %q timed out after %s", e.Step, e.Timeout)
	if e.Attempt > 0 {
		msg += fmt.Sprintf(" (attempt %d, %s elapsed)", e.Attempt, e.Elapsed.Round(time.Millisecond))
	}
	return msg
}

// ScenarioTimeoutError is raised when cumulative scenario time exceeds the
// scenario's budget. Step and StepIndex identify the step active at expiry
// and are backfilled during classification when absent.
type ScenarioTimeoutError struct {
	Scenario  string
	Timeout   time.Duration
	Elapsed   time.Duration
	Step      string
	StepIndex int
}

func (e *ScenarioTimeoutError) Error() string {
	msg := fmt.Sprintf("scenario %q timed out after %s", e.Scenario, e.Timeout)
	if e.Step != "" {
		msg += fmt.Sprintf(" while running step %q (#%d)", e.Step, e.StepIndex)
	}
	return msg
}

// IsTimeout reports whether err is a step- or scenario-timeout error. Both
// are excluded from retry by policy.
func IsTimeout(err error) bool {
	var step *StepTimeoutError
	var scenario *ScenarioTimeoutError
	return errors.As(err, &step) || errors.As(err, &scenario) || errors.Is(err, context.DeadlineExceeded)
}

// AbortError carries the reason a run was cut short, either by the
// fail-fast threshold or by an external cancellation.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return "run aborted: " + e.Reason
}

// isCancellation reports whether err means "stop, but not because this
// scenario failed". Affected scenarios are reported as skipped.
func isCancellation(err error) bool {
	var ab *AbortError
	return errors.As(err, &ab) || errors.Is(err, context.Canceled)
}
