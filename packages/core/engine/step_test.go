package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRetry(max int) *retry.Policy {
	return &retry.Policy{MaxAttempts: max, Backoff: retry.Linear, BaseDelay: time.Millisecond}
}

func runSingleStep(t *testing.T, r *Runner, step *StepDefinition) (*StepResult, *ScenarioContext, *disposalStack) {
	t.Helper()
	def := &ScenarioDefinition{Name: "test", Steps: []*StepDefinition{step}}
	sc := newScenarioContext(def)
	stack := newDisposalStack()
	res := r.runStep(context.Background(), def, sc, stack, step, 1)
	return res, sc, stack
}

func TestRunStep_Passed(t *testing.T) {
	r := NewRunner(nil)
	step := &StepDefinition{
		Name: "produce",
		Kind: KindStep,
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			return 42, nil
		},
	}

	res, sc, _ := runSingleStep(t, r, step)

	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, []any{42}, sc.Results())
}

func TestRunStep_RetriesUntilSuccess(t *testing.T) {
	r := NewRunner(nil)
	calls := 0
	step := &StepDefinition{
		Name:  "flaky",
		Kind:  KindStep,
		Retry: quickRetry(3),
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("transient")
			}
			return "done", nil
		},
	}

	res, _, _ := runSingleStep(t, r, step)

	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, "done", res.Value)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, calls)
}

func TestRunStep_ExhaustedAttemptsReportLastError(t *testing.T) {
	r := NewRunner(nil)
	boom := errors.New("boom")
	calls := 0
	step := &StepDefinition{
		Name:  "broken",
		Kind:  KindStep,
		Retry: quickRetry(2),
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			calls++
			return nil, boom
		},
	}

	res, _, _ := runSingleStep(t, r, step)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, boom, res.Err)
	assert.Equal(t, 2, calls)
}

func TestRunStep_TimeoutNotRetried(t *testing.T) {
	r := NewRunner(nil)
	calls := 0
	step := &StepDefinition{
		Name:    "slow",
		Kind:    KindStep,
		Timeout: 20 * time.Millisecond,
		Retry:   quickRetry(3),
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			calls++
			<-ctx.Done()
			return nil, context.Cause(ctx)
		},
	}

	res, _, _ := runSingleStep(t, r, step)

	require.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 1, calls, "a timed-out step must not be retried")

	var te *StepTimeoutError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, "slow", te.Step)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
	assert.Equal(t, 1, te.Attempt)
	assert.Greater(t, te.Elapsed, time.Duration(0))
}

func TestRunStep_FreshTimeoutPerAttempt(t *testing.T) {
	r := NewRunner(nil)
	calls := 0
	step := &StepDefinition{
		Name:    "slow-then-fast",
		Kind:    KindStep,
		Timeout: 50 * time.Millisecond,
		Retry:   quickRetry(3),
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("warmup failure")
			}
			// Well within a fresh 50ms budget even though the first attempt
			// already consumed wall time.
			select {
			case <-time.After(10 * time.Millisecond):
				return "ok", nil
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			}
		},
	}

	res, _, _ := runSingleStep(t, r, step)

	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, 2, calls)
}

func TestRunStep_SkipNotRetried(t *testing.T) {
	r := NewRunner(nil)
	calls := 0
	step := &StepDefinition{
		Name:  "conditional",
		Kind:  KindStep,
		Retry: quickRetry(5),
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			calls++
			return nil, Skip("not applicable in this environment")
		},
	}

	res, _, _ := runSingleStep(t, r, step)

	assert.Equal(t, StatusSkipped, res.Status)
	assert.True(t, IsSkip(res.Err))
	assert.Equal(t, 1, calls)
}

type recordingCloser struct {
	name string
	log  *[]string
}

func (c *recordingCloser) Close() error {
	*c.log = append(*c.log, c.name)
	return nil
}

func TestRunStep_ResourceRegistration(t *testing.T) {
	t.Run("disposable value is registered and pushed", func(t *testing.T) {
		r := NewRunner(nil)
		var log []string
		closer := &recordingCloser{name: "db", log: &log}
		step := &StepDefinition{
			Name: "open-db",
			Kind: KindResource,
			Fn: func(ctx context.Context, sc *StepContext) (any, error) {
				return closer, nil
			},
		}

		res, sc, stack := runSingleStep(t, r, step)

		assert.Equal(t, StatusPassed, res.Status)
		got, ok := sc.Resource("open-db")
		require.True(t, ok)
		assert.Same(t, closer, got)
		assert.Equal(t, 1, stack.len())
	})

	t.Run("plain value is registered without disposal", func(t *testing.T) {
		r := NewRunner(nil)
		step := &StepDefinition{
			Name: "token",
			Kind: KindResource,
			Fn: func(ctx context.Context, sc *StepContext) (any, error) {
				return "abc123", nil
			},
		}

		res, sc, stack := runSingleStep(t, r, step)

		assert.Equal(t, StatusPassed, res.Status)
		got, ok := sc.Resource("token")
		require.True(t, ok)
		assert.Equal(t, "abc123", got)
		assert.Equal(t, 0, stack.len())
	})
}

func TestRunStep_SetupCleanupDeferred(t *testing.T) {
	r := NewRunner(nil)
	cleaned := false
	step := &StepDefinition{
		Name: "seed",
		Kind: KindSetup,
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			return func() error {
				cleaned = true
				return nil
			}, nil
		},
	}

	res, _, stack := runSingleStep(t, r, step)

	assert.Equal(t, StatusPassed, res.Status)
	require.Equal(t, 1, stack.len())
	require.NoError(t, stack.unwind(context.Background(), r.log))
	assert.True(t, cleaned)
}

func TestRunStep_PanicRecovered(t *testing.T) {
	r := NewRunner(nil)
	step := &StepDefinition{
		Name: "explosive",
		Kind: KindStep,
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			panic("kaboom")
		},
	}

	res, _, _ := runSingleStep(t, r, step)

	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "panicked")
	assert.ErrorContains(t, res.Err, "kaboom")
}

func TestRunStep_InheritedScenarioTimeoutEnriched(t *testing.T) {
	r := NewRunner(nil)
	def := &ScenarioDefinition{Name: "budgeted"}
	step := &StepDefinition{
		Name: "waits",
		Kind: KindStep,
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			<-ctx.Done()
			return nil, context.Cause(ctx)
		},
	}
	def.Steps = []*StepDefinition{step}

	ctx, cancel := context.WithTimeoutCause(context.Background(), 20*time.Millisecond,
		&ScenarioTimeoutError{Scenario: "budgeted", Timeout: 20 * time.Millisecond})
	defer cancel()

	sc := newScenarioContext(def)
	res := r.runStep(ctx, def, sc, newDisposalStack(), step, 1)

	require.Equal(t, StatusFailed, res.Status)
	var te *ScenarioTimeoutError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, "budgeted", te.Scenario)
	assert.Equal(t, "waits", te.Step)
	assert.Equal(t, 1, te.StepIndex)
}

func TestRunStep_PrevCarriesLastResult(t *testing.T) {
	r := NewRunner(nil)
	def := &ScenarioDefinition{Name: "chained"}
	first := &StepDefinition{
		Name: "first",
		Kind: KindStep,
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			assert.Nil(t, sc.Prev)
			return "one", nil
		},
	}
	second := &StepDefinition{
		Name: "second",
		Kind: KindStep,
		Fn: func(ctx context.Context, sc *StepContext) (any, error) {
			assert.Equal(t, "one", sc.Prev)
			assert.Equal(t, 2, sc.Index)
			return "two", nil
		},
	}
	def.Steps = []*StepDefinition{first, second}

	sc := newScenarioContext(def)
	stack := newDisposalStack()
	ctx := context.Background()

	res1 := r.runStep(ctx, def, sc, stack, first, 1)
	res2 := r.runStep(ctx, def, sc, stack, second, 2)

	assert.Equal(t, StatusPassed, res1.Status)
	assert.Equal(t, StatusPassed, res2.Status)
	assert.Equal(t, []any{"one", "two"}, sc.Results())
}
