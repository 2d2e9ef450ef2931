package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/signal"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Runner executes sets of scenarios with bounded concurrency.
type Runner struct {
	cfg      *Config
	reporter Reporter
	log      logrus.FieldLogger
	limiter  *rate.Limiter
}

// NewRunner creates a runner. A nil config gets defaults.
func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Runner{
		cfg:      cfg,
		reporter: cfg.Reporter,
		log:      cfg.Logger,
	}
	if r.reporter == nil {
		r.reporter = NopReporter{}
	}
	if r.log == nil {
		r.log = discardLogger()
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return r
}

// Run executes the given scenarios, partitioned into concurrency-bounded
// batches. It always returns a result with one entry per input scenario in
// input order; scenario failures are data in the result, not errors from
// this call.
func (r *Runner) Run(ctx context.Context, scenarios []*ScenarioDefinition) *RunResult {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	// Internal controller: fires on the caller's context, the optional
	// external signal, or a fail-fast abort.
	runCtx, abort := signal.Any(ctx, r.cfg.Signal)
	defer abort(context.Canceled)

	r.reporter.OnRunStart(scenarios)
	r.log.WithFields(logrus.Fields{
		"scenarios":   len(scenarios),
		"concurrency": r.cfg.MaxConcurrency,
	}).Debug("run started")

	results := make([]*ScenarioResult, len(scenarios))
	var failures atomic.Int64

	batch := r.cfg.MaxConcurrency
	if batch <= 0 || batch > len(scenarios) {
		batch = len(scenarios)
	}

	for lo := 0; lo < len(scenarios); lo += batch {
		if runCtx.Err() != nil {
			break
		}
		hi := min(lo+batch, len(scenarios))

		var wg sync.WaitGroup
		for idx := lo; idx < hi; idx++ {
			wg.Add(1)
			go func(idx int, def *ScenarioDefinition) {
				defer wg.Done()
				results[idx] = r.launch(runCtx, def, &failures, abort)
			}(idx, scenarios[idx])
		}
		wg.Wait()
	}

	res := &RunResult{
		RunID:     uuid.NewString(),
		Total:     len(scenarios),
		Scenarios: make([]*ScenarioResult, len(scenarios)),
	}
	for i, sr := range results {
		if sr == nil {
			// Never launched: batch processing stopped early.
			sr = skippedResult(scenarios[i], context.Cause(runCtx))
		}
		res.Scenarios[i] = sr
		switch sr.Status {
		case StatusPassed:
			res.Passed++
		case StatusFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	res.Duration = time.Since(start)

	r.reporter.OnRunEnd(res)
	r.log.WithFields(logrus.Fields{
		"passed":   res.Passed,
		"failed":   res.Failed,
		"skipped":  res.Skipped,
		"duration": res.Duration,
	}).Debug("run finished")

	return res
}

// launch runs one scenario of a batch under its effective timeout and feeds
// the fail-fast counter.
func (r *Runner) launch(runCtx context.Context, def *ScenarioDefinition, failures *atomic.Int64, abort context.CancelCauseFunc) *ScenarioResult {
	if r.limiter != nil {
		if err := r.limiter.Wait(runCtx); err != nil {
			return skippedResult(def, context.Cause(runCtx))
		}
	}
	// The run may have been aborted after this batch launched but before
	// this scenario's turn.
	if runCtx.Err() != nil {
		return skippedResult(def, context.Cause(runCtx))
	}

	sctx := runCtx
	if timeout := r.cfg.scenarioTimeout(def); timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeoutCause(runCtx, timeout,
			&ScenarioTimeoutError{Scenario: def.Name, Timeout: timeout})
		defer cancel()
	}

	res := r.runScenario(sctx, def)

	if res.Status == StatusFailed {
		n := failures.Add(1)
		if r.cfg.MaxFailures > 0 && n >= int64(r.cfg.MaxFailures) {
			r.log.WithField("failures", n).Debug("failure threshold reached, aborting run")
			abort(&AbortError{Reason: fmt.Sprintf("failure threshold reached (%d)", r.cfg.MaxFailures)})
		}
	}
	return res
}

func skippedResult(def *ScenarioDefinition, cause error) *ScenarioResult {
	if cause == nil {
		cause = context.Canceled
	}
	return &ScenarioResult{
		Name:   def.Name,
		Tags:   def.Tags,
		Status: StatusSkipped,
		Err:    cause,
	}
}
