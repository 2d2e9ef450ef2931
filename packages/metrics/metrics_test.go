package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(c *Collector, step string, d time.Duration, status engine.Status) {
	c.OnStepEnd(
		&engine.ScenarioDefinition{Name: "s"},
		&engine.StepDefinition{Name: step, Kind: engine.KindStep},
		&engine.StepResult{Name: step, Status: status, Duration: d},
	)
}

func TestCollector_Empty(t *testing.T) {
	s := NewCollector().Summary()

	assert.Equal(t, int64(0), s.TotalSteps)
	assert.Empty(t, s.Steps)
}

func TestCollector_Records(t *testing.T) {
	c := NewCollector()
	record(c, "put", 10*time.Millisecond, engine.StatusPassed)
	record(c, "put", 20*time.Millisecond, engine.StatusPassed)
	record(c, "get", 5*time.Millisecond, engine.StatusFailed)

	s := c.Summary()

	assert.Equal(t, int64(3), s.TotalSteps)
	assert.Equal(t, int64(1), s.FailedSteps)
	assert.InDelta(t, (5 * time.Millisecond).Microseconds(), s.Min.Microseconds(), 100)
	assert.InDelta(t, (20 * time.Millisecond).Microseconds(), s.Max.Microseconds(), 100)

	require.Len(t, s.Steps, 2)
	// Per-step summaries are sorted by name.
	assert.Equal(t, "get", s.Steps[0].Name)
	assert.Equal(t, int64(1), s.Steps[0].Count)
	assert.Equal(t, "put", s.Steps[1].Name)
	assert.Equal(t, int64(2), s.Steps[1].Count)
}

func TestCollector_AsEngineReporter(t *testing.T) {
	c := NewCollector()
	r := engine.NewRunner(&engine.Config{Reporter: c})

	scenarios := []*engine.ScenarioDefinition{{
		Name: "timed",
		Steps: []*engine.StepDefinition{
			{Name: "a", Kind: engine.KindStep, Fn: func(ctx context.Context, sc *engine.StepContext) (any, error) {
				return nil, nil
			}},
			{Name: "b", Kind: engine.KindStep, Fn: func(ctx context.Context, sc *engine.StepContext) (any, error) {
				time.Sleep(5 * time.Millisecond)
				return nil, nil
			}},
		},
	}}

	r.Run(context.Background(), scenarios)

	s := c.Summary()
	assert.Equal(t, int64(2), s.TotalSteps)
	assert.GreaterOrEqual(t, s.Max, 5*time.Millisecond)
}
