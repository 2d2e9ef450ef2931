package report

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
)

// JSONOutput is the complete JSON output structure
type JSONOutput struct {
	RunID     string         `json:"runId"`
	Summary   JSONSummary    `json:"summary"`
	Scenarios []JSONScenario `json:"scenarios"`
	Duration  float64        `json:"duration"`
	Time      string         `json:"time"`
}

// JSONSummary is the scenario summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONScenario is a single scenario result
type JSONScenario struct {
	Name     string     `json:"name"`
	Tags     []string   `json:"tags,omitempty"`
	Status   string     `json:"status"`
	Duration float64    `json:"duration"`
	Error    string     `json:"error,omitempty"`
	Steps    []JSONStep `json:"steps,omitempty"`
}

// JSONStep is a single step result
type JSONStep struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	Attempts int     `json:"attempts"`
	Error    string  `json:"error,omitempty"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer io.Writer
	output *JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *engine.RunResult) {
	out := &JSONOutput{
		RunID: result.RunID,
		Summary: JSONSummary{
			Total:   result.Total,
			Passed:  result.Passed,
			Failed:  result.Failed,
			Skipped: result.Skipped,
		},
		Scenarios: make([]JSONScenario, 0, len(result.Scenarios)),
		Duration:  float64(result.Duration.Milliseconds()),
		Time:      time.Now().Format(time.RFC3339),
	}

	for _, sc := range result.Scenarios {
		js := JSONScenario{
			Name:     sc.Name,
			Tags:     sc.Tags,
			Status:   string(sc.Status),
			Duration: float64(sc.Duration.Milliseconds()),
			Steps:    make([]JSONStep, 0, len(sc.Steps)),
		}
		if sc.Err != nil {
			js.Error = sc.Err.Error()
		}
		for _, st := range sc.Steps {
			step := JSONStep{
				Name:     st.Name,
				Kind:     string(st.Kind),
				Status:   string(st.Status),
				Duration: float64(st.Duration.Milliseconds()),
				Attempts: st.Attempts,
			}
			if st.Err != nil {
				step.Error = st.Err.Error()
			}
			js.Steps = append(js.Steps, step)
		}
		out.Scenarios = append(out.Scenarios, js)
	}

	f.output = out
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in scenario results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	if f.output == nil {
		f.output = &JSONOutput{Time: time.Now().Format(time.RFC3339)}
	}
	f.output.Duration = float64(totalDuration.Milliseconds())

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
