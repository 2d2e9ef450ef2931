package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/fatih/color"
)

// Progress prints scenario results as they finish. Scenarios run
// concurrently, so writes are serialized with a mutex.
type Progress struct {
	engine.NopReporter

	mu     sync.Mutex
	writer io.Writer
}

type ProgressOption func(*Progress)

func NewProgress(opts ...ProgressOption) *Progress {
	p := &Progress{
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func ProgressWithWriter(w io.Writer) ProgressOption {
	return func(p *Progress) {
		p.writer = w
	}
}

func (p *Progress) OnRunStart(scenarios []*engine.ScenarioDefinition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "Running %d scenarios...\n", len(scenarios))
}

func (p *Progress) OnScenarioEnd(def *engine.ScenarioDefinition, res *engine.ScenarioResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.Status {
	case engine.StatusPassed:
		fmt.Fprintf(p.writer, "%s %s (%dms)\n", color.GreenString("PASS"), res.Name, res.Duration.Milliseconds())
	case engine.StatusSkipped:
		fmt.Fprintf(p.writer, "%s %s\n", color.YellowString("SKIP"), res.Name)
	default:
		fmt.Fprintf(p.writer, "%s %s (%dms)\n", color.RedString("FAIL"), res.Name, res.Duration.Milliseconds())
	}
}
