// Package metrics collects step latency distributions during a run. The
// Collector is an engine.Reporter, so it plugs straight into the runner
// alongside the output reporters.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
)

// Histogram bounds: 1us to 10min, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 600_000_000
)

// Collector aggregates step durations across a run.
type Collector struct {
	engine.NopReporter

	totalSteps  atomic.Int64
	failedSteps atomic.Int64

	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	perStep   map[string]*hdrhistogram.Histogram
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		perStep:   make(map[string]*hdrhistogram.Histogram),
	}
}

// OnStepEnd records the finished step's duration.
func (c *Collector) OnStepEnd(sc *engine.ScenarioDefinition, step *engine.StepDefinition, res *engine.StepResult) {
	c.totalSteps.Add(1)
	if res.Status == engine.StatusFailed {
		c.failedSteps.Add(1)
	}

	latencyUs := res.Duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.histogram.RecordValue(latencyUs)

	h, ok := c.perStep[step.Name]
	if !ok {
		h = hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
		c.perStep[step.Name] = h
	}
	_ = h.RecordValue(latencyUs)
}

// Summary is the aggregated view of a run's step latencies.
type Summary struct {
	TotalSteps  int64
	FailedSteps int64
	Min         time.Duration
	Max         time.Duration
	Mean        time.Duration
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	Steps       []StepSummary
}

// StepSummary is the per-step latency breakdown.
type StepSummary struct {
	Name  string
	Count int64
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// Summary snapshots the collected metrics.
func (c *Collector) Summary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		TotalSteps:  c.totalSteps.Load(),
		FailedSteps: c.failedSteps.Load(),
	}
	if c.histogram.TotalCount() == 0 {
		return s
	}

	s.Min = time.Duration(c.histogram.Min()) * time.Microsecond
	s.Max = time.Duration(c.histogram.Max()) * time.Microsecond
	s.Mean = time.Duration(c.histogram.Mean()) * time.Microsecond
	s.P50 = time.Duration(c.histogram.ValueAtQuantile(50)) * time.Microsecond
	s.P95 = time.Duration(c.histogram.ValueAtQuantile(95)) * time.Microsecond
	s.P99 = time.Duration(c.histogram.ValueAtQuantile(99)) * time.Microsecond

	names := make([]string, 0, len(c.perStep))
	for name := range c.perStep {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h := c.perStep[name]
		s.Steps = append(s.Steps, StepSummary{
			Name:  name,
			Count: h.TotalCount(),
			P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
			P95:   time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
			Max:   time.Duration(h.Max()) * time.Microsecond,
		})
	}
	return s
}
