package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
	"gopkg.in/yaml.v3"
)

// SuiteFile is the YAML shape of a suite file.
type SuiteFile struct {
	Suite     string            `yaml:"suite"`
	Vars      map[string]string `yaml:"vars"`
	Scenarios []ScenarioSpec    `yaml:"scenarios"`
}

// ScenarioSpec is one scenario entry in a suite file.
type ScenarioSpec struct {
	Name    string     `yaml:"name"`
	Tags    []string   `yaml:"tags"`
	Timeout string     `yaml:"timeout"`
	Steps   []StepSpec `yaml:"steps"`
}

// StepSpec is one step entry in a scenario.
type StepSpec struct {
	Name    string         `yaml:"name"`
	Kind    string         `yaml:"kind"`
	Action  string         `yaml:"action"`
	With    map[string]any `yaml:"with"`
	Timeout string         `yaml:"timeout"`
	Retry   *RetrySpec     `yaml:"retry"`
}

// RetrySpec is a step's retry policy in a suite file.
type RetrySpec struct {
	MaxAttempts int    `yaml:"maxAttempts"`
	Backoff     string `yaml:"backoff"`
	BaseDelay   string `yaml:"baseDelay"`
}

// Loader turns suite files into scenario definitions.
type Loader struct {
	registry *Registry
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry replaces the builtin action registry.
func WithRegistry(r *Registry) Option {
	return func(l *Loader) {
		l.registry = r
	}
}

// New creates a loader with the builtin actions.
func New(opts ...Option) *Loader {
	l := &Loader{
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads, validates and binds one suite file.
func (l *Loader) LoadFile(path string) ([]*engine.ScenarioDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Decode once into a generic document for schema validation, then again
	// into the typed structs.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var suite SuiteFile
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	defs, err := l.bind(&suite)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// LoadFiles loads several suite files, concatenating their scenarios in file
// order.
func (l *Loader) LoadFiles(paths ...string) ([]*engine.ScenarioDefinition, error) {
	var defs []*engine.ScenarioDefinition
	for _, path := range paths {
		d, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d...)
	}
	return defs, nil
}

// bind resolves variables and builds step functions for every scenario in
// the suite.
func (l *Loader) bind(suite *SuiteFile) ([]*engine.ScenarioDefinition, error) {
	res := newResolver(suite.Vars)
	seen := make(map[string]bool)

	defs := make([]*engine.ScenarioDefinition, 0, len(suite.Scenarios))
	for _, spec := range suite.Scenarios {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate scenario name %q", spec.Name)
		}
		seen[spec.Name] = true

		def, err := l.bindScenario(&spec, res)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (l *Loader) bindScenario(spec *ScenarioSpec, res *resolver) (*engine.ScenarioDefinition, error) {
	def := &engine.ScenarioDefinition{
		Name: spec.Name,
		Tags: spec.Tags,
	}

	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		def.Timeout = d
	}

	stepNames := make(map[string]bool)
	for _, stepSpec := range spec.Steps {
		if stepNames[stepSpec.Name] {
			return nil, fmt.Errorf("duplicate step name %q", stepSpec.Name)
		}
		stepNames[stepSpec.Name] = true

		step, err := l.bindStep(&stepSpec, res)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", stepSpec.Name, err)
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

func (l *Loader) bindStep(spec *StepSpec, res *resolver) (*engine.StepDefinition, error) {
	step := &engine.StepDefinition{
		Name: spec.Name,
		Kind: stepKind(spec.Kind),
	}

	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		step.Timeout = d
	}

	if spec.Retry != nil {
		p, err := retryPolicy(spec.Retry)
		if err != nil {
			return nil, err
		}
		step.Retry = p
	}

	fn, err := l.registry.build(spec.Action, res.resolveArgs(spec.With))
	if err != nil {
		return nil, err
	}
	step.Fn = fn
	return step, nil
}

func stepKind(kind string) engine.StepKind {
	switch kind {
	case "resource":
		return engine.KindResource
	case "setup":
		return engine.KindSetup
	default:
		return engine.KindStep
	}
}

func retryPolicy(spec *RetrySpec) (*retry.Policy, error) {
	p := &retry.Policy{
		MaxAttempts: spec.MaxAttempts,
	}
	if spec.Backoff == "exponential" {
		p.Backoff = retry.Exponential
	}
	if spec.BaseDelay != "" {
		d, err := time.ParseDuration(spec.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("retry.baseDelay: %w", err)
		}
		p.BaseDelay = d
	}
	return p, nil
}

// Discover walks root for suite files, matching *.runspec.yaml and
// *.runspec.yml, returned in lexical order.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".runspec.yaml") || strings.HasSuffix(path, ".runspec.yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
