package engine

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// ScenarioContext is the shared mutable state threaded through a scenario's
// steps: a key-value store, the resource map filled by resource steps, and
// the ordered result history grown by step-kind steps.
//
// Only the single active step of a scenario mutates it, so no locking is
// needed; the engine and reporters read it for diagnostics only.
type ScenarioContext struct {
	name      string
	tags      []string
	store     map[string]any
	resources map[string]any
	results   []any
}

func newScenarioContext(def *ScenarioDefinition) *ScenarioContext {
	return &ScenarioContext{
		name:      def.Name,
		tags:      def.Tags,
		store:     make(map[string]any),
		resources: make(map[string]any),
	}
}

// Name returns the scenario's name.
func (sc *ScenarioContext) Name() string { return sc.name }

// Tags returns the scenario's tag set.
func (sc *ScenarioContext) Tags() []string { return sc.tags }

// Set stores a value under key, replacing any previous value.
func (sc *ScenarioContext) Set(key string, value any) {
	sc.store[key] = value
}

// Get returns the value stored under key.
func (sc *ScenarioContext) Get(key string) (any, bool) {
	v, ok := sc.store[key]
	return v, ok
}

// Resource returns the value acquired by the resource step with the given
// name.
func (sc *ScenarioContext) Resource(name string) (any, bool) {
	v, ok := sc.resources[name]
	return v, ok
}

// Results returns the ordered values produced by step-kind steps so far.
func (sc *ScenarioContext) Results() []any {
	out := make([]any, len(sc.results))
	copy(out, sc.results)
	return out
}

func (sc *ScenarioContext) setResource(name string, value any) {
	sc.resources[name] = value
}

func (sc *ScenarioContext) appendResult(value any) {
	sc.results = append(sc.results, value)
}

func (sc *ScenarioContext) lastResult() any {
	if len(sc.results) == 0 {
		return nil
	}
	return sc.results[len(sc.results)-1]
}

// StepContext is the per-step view over a ScenarioContext. Store, resources
// and result history are shared by reference with the scenario.
type StepContext struct {
	*ScenarioContext

	// Index is this step's 1-based position within the scenario.
	Index int
	// Prev is the value produced by the most recent step-kind step, nil if
	// none has completed yet.
	Prev any
}

func (sc *ScenarioContext) stepContext(index int) *StepContext {
	return &StepContext{
		ScenarioContext: sc,
		Index:           index,
		Prev:            sc.lastResult(),
	}
}

// disposal is one pending release action on a scenario's disposal stack.
type disposal struct {
	step    string
	release func(context.Context) error
}

// disposalStack holds the ordered release actions for a scenario's acquired
// resources. Push order is acquisition order; unwind releases in reverse,
// exactly once, on every exit path.
type disposalStack struct {
	entries []disposal
}

func newDisposalStack() *disposalStack {
	return &disposalStack{}
}

func (d *disposalStack) push(step string, release func(context.Context) error) {
	d.entries = append(d.entries, disposal{step: step, release: release})
}

func (d *disposalStack) len() int {
	return len(d.entries)
}

// unwind releases everything in reverse order. Release errors do not stop
// the unwind; they are logged and the first one is returned.
func (d *disposalStack) unwind(ctx context.Context, log logrus.FieldLogger) error {
	var firstErr error
	for i := len(d.entries) - 1; i >= 0; i-- {
		e := d.entries[i]
		if err := e.release(ctx); err != nil {
			log.WithField("step", e.step).WithError(err).Warn("resource release failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	d.entries = nil
	return firstErr
}

// releaseFunc probes a value for a release capability. The probe is
// structural, not by type identity: io.Closer, context-aware Close, and the
// cleanup-function shapes setup steps return are all honored.
func releaseFunc(v any) func(context.Context) error {
	switch c := v.(type) {
	case func(context.Context) error:
		return c
	case func() error:
		return func(context.Context) error { return c() }
	case func():
		return func(context.Context) error { c(); return nil }
	case interface{ Close(context.Context) error }:
		return c.Close
	case io.Closer:
		return func(context.Context) error { return c.Close() }
	}
	return nil
}
