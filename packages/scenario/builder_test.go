package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, sc *engine.StepContext) (any, error) {
	return nil, nil
}

func TestBuilder_Build(t *testing.T) {
	def, err := New("checkout").
		Tags("smoke", "payments").
		Timeout(30*time.Second).
		Resource("store", noop).
		Setup("seed", noop).
		Step("purchase", noop,
			WithTimeout(5*time.Second),
			WithRetry(3, retry.Exponential, 100*time.Millisecond)).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "checkout", def.Name)
	assert.Equal(t, []string{"smoke", "payments"}, def.Tags)
	assert.Equal(t, 30*time.Second, def.Timeout)
	require.Len(t, def.Steps, 3)

	assert.Equal(t, engine.KindResource, def.Steps[0].Kind)
	assert.Equal(t, engine.KindSetup, def.Steps[1].Kind)

	purchase := def.Steps[2]
	assert.Equal(t, engine.KindStep, purchase.Kind)
	assert.Equal(t, 5*time.Second, purchase.Timeout)
	require.NotNil(t, purchase.Retry)
	assert.Equal(t, 3, purchase.Retry.MaxAttempts)
	assert.Equal(t, retry.Exponential, purchase.Retry.Backoff)
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		wantErr string
	}{
		{"empty scenario name", New("").Step("s", noop), "name must not be empty"},
		{"no steps", New("empty"), "at least one step"},
		{"empty step name", New("s").Step("", noop), "name must not be empty"},
		{"nil work function", New("s").Step("broken", nil), "must not be nil"},
		{"duplicate step name", New("s").Step("dup", noop).Step("dup", noop), "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		New("").MustBuild()
	})
}

func TestBuilder_RunsOnEngine(t *testing.T) {
	var order []string
	def := New("integration").
		Resource("conn", func(ctx context.Context, sc *engine.StepContext) (any, error) {
			return func() error {
				order = append(order, "release")
				return nil
			}, nil
		}).
		Step("work", func(ctx context.Context, sc *engine.StepContext) (any, error) {
			order = append(order, "work")
			return "done", nil
		}).
		MustBuild()

	res := engine.NewRunner(nil).Run(context.Background(), []*engine.ScenarioDefinition{def})

	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, []string{"work", "release"}, order)
}
