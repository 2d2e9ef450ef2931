// Package scenario provides a fluent builder for scenario definitions.
//
// The builder produces the plain data the engine consumes:
//
//	def, err := scenario.New("checkout").
//		Tags("smoke", "payments").
//		Timeout(30*time.Second).
//		Resource("store", openStore).
//		Setup("seed", seedFixtures).
//		Step("purchase", purchase, scenario.WithRetry(3, retry.Exponential, 100*time.Millisecond)).
//		Build()
package scenario

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
)

// Builder accumulates a scenario definition step by step.
type Builder struct {
	def  engine.ScenarioDefinition
	errs []error
}

// New starts a builder for a scenario with the given name.
func New(name string) *Builder {
	b := &Builder{}
	b.def.Name = name
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("scenario name must not be empty"))
	}
	return b
}

// Tags adds tags to the scenario.
func (b *Builder) Tags(tags ...string) *Builder {
	b.def.Tags = append(b.def.Tags, tags...)
	return b
}

// Timeout sets the scenario's cumulative time budget.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.def.Timeout = d
	return b
}

// StepOption tweaks a single step definition.
type StepOption func(*engine.StepDefinition)

// WithTimeout overrides the per-attempt timeout for this step.
func WithTimeout(d time.Duration) StepOption {
	return func(s *engine.StepDefinition) {
		s.Timeout = d
	}
}

// WithRetry overrides the retry policy for this step.
func WithRetry(maxAttempts int, backoff retry.Backoff, baseDelay time.Duration) StepOption {
	return func(s *engine.StepDefinition) {
		s.Retry = &retry.Policy{
			MaxAttempts: maxAttempts,
			Backoff:     backoff,
			BaseDelay:   baseDelay,
		}
	}
}

// Resource appends a resource-kind step. The acquired value is registered
// under the step's name and released when the scenario ends.
func (b *Builder) Resource(name string, fn engine.StepFunc, opts ...StepOption) *Builder {
	return b.add(name, engine.KindResource, fn, opts)
}

// Setup appends a setup-kind step. A returned cleanup function or disposable
// value is deferred until the scenario ends.
func (b *Builder) Setup(name string, fn engine.StepFunc, opts ...StepOption) *Builder {
	return b.add(name, engine.KindSetup, fn, opts)
}

// Step appends an execution-kind step whose value joins the scenario's
// result history.
func (b *Builder) Step(name string, fn engine.StepFunc, opts ...StepOption) *Builder {
	return b.add(name, engine.KindStep, fn, opts)
}

func (b *Builder) add(name string, kind engine.StepKind, fn engine.StepFunc, opts []StepOption) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("step %d: name must not be empty", len(b.def.Steps)+1))
	}
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("step %q: work function must not be nil", name))
	}
	for _, prev := range b.def.Steps {
		if prev.Name == name {
			b.errs = append(b.errs, fmt.Errorf("step %q: duplicate step name", name))
			break
		}
	}

	step := &engine.StepDefinition{Name: name, Kind: kind, Fn: fn}
	for _, opt := range opts {
		opt(step)
	}
	b.def.Steps = append(b.def.Steps, step)
	return b
}

// Build validates and returns the accumulated definition.
func (b *Builder) Build() (*engine.ScenarioDefinition, error) {
	if len(b.def.Steps) == 0 {
		b.errs = append(b.errs, fmt.Errorf("scenario %q: at least one step is required", b.def.Name))
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid scenario %q: %w", b.def.Name, b.errs[0])
	}
	def := b.def
	return &def, nil
}

// MustBuild is Build for static scenario tables; it panics on invalid
// definitions.
func (b *Builder) MustBuild() *engine.ScenarioDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
