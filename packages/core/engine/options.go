package engine

import (
	"context"
	"io"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultStepTimeout bounds a single attempt when neither the step nor
	// the run sets a budget.
	DefaultStepTimeout = 30 * time.Second
)

// Config holds run-wide options. The zero value runs everything
// concurrently, never aborts early, applies no scenario budget and runs each
// step once with the default attempt timeout.
type Config struct {
	// MaxConcurrency bounds how many scenarios run at once. Scenarios are
	// partitioned into consecutive batches of this size; 0 runs all of them
	// in one batch.
	MaxConcurrency int
	// MaxFailures aborts the run once this many scenarios have failed,
	// marking everything still running or not yet started as skipped.
	// 0 never aborts early.
	MaxFailures int
	// Timeout is the default per-scenario budget, overridable per scenario.
	// 0 leaves scenarios unbounded.
	Timeout time.Duration
	// StepTimeout is the default per-attempt budget for steps that do not
	// set their own. 0 falls back to DefaultStepTimeout.
	StepTimeout time.Duration
	// Retry is the default retry policy for steps that do not set their
	// own. The zero policy runs each step once.
	Retry retry.Policy
	// RateLimit caps scenario launches per second. 0 launches without
	// pacing.
	RateLimit float64
	// Signal is an optional external cancellation source observed in
	// addition to the context passed to Run.
	Signal context.Context
	// Reporter receives lifecycle notifications. Nil means none.
	Reporter Reporter
	// Logger receives engine debug traces. Nil discards them.
	Logger logrus.FieldLogger
}

func (c *Config) stepTimeout(step *StepDefinition) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	if c.StepTimeout > 0 {
		return c.StepTimeout
	}
	return DefaultStepTimeout
}

func (c *Config) retryPolicy(step *StepDefinition) retry.Policy {
	if step.Retry != nil {
		return step.Retry.Normalize()
	}
	return c.Retry.Normalize()
}

func (c *Config) scenarioTimeout(def *ScenarioDefinition) time.Duration {
	if def.Timeout > 0 {
		return def.Timeout
	}
	return c.Timeout
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
