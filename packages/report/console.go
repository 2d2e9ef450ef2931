package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/fatih/color"
)

// Formatter renders a finished run.
type Formatter interface {
	FormatResult(result *engine.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and write
// them out once at the end.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// ConsoleFormatter writes human-readable colored output.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

// ConsoleOption configures a ConsoleFormatter.
type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *engine.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "\n")

	for _, sc := range result.Scenarios {
		switch sc.Status {
		case engine.StatusSkipped:
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), sc.Name)
			if sc.Err != nil {
				fmt.Fprintf(f.writer, " (%v)", sc.Err)
			}
			fmt.Fprintf(f.writer, "\n")
		case engine.StatusFailed:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), sc.Name, cyan(fmt.Sprintf("(%dms)", sc.Duration.Milliseconds())))
			if sc.Err != nil {
				fmt.Fprintf(f.writer, "    %s %v\n", red("→"), sc.Err)
			}
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), sc.Name, cyan(fmt.Sprintf("(%dms)", sc.Duration.Milliseconds())))
		}

		if f.verbose {
			for _, st := range sc.Steps {
				symbol := green("✓")
				switch st.Status {
				case engine.StatusFailed:
					symbol = red("✗")
				case engine.StatusSkipped:
					symbol = yellow("-")
				}
				fmt.Fprintf(f.writer, "    %s [%s] %s (%dms", symbol, st.Kind, st.Name, st.Duration.Milliseconds())
				if st.Attempts > 1 {
					fmt.Fprintf(f.writer, ", %d attempts", st.Attempts)
				}
				fmt.Fprintf(f.writer, ")\n")
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Scenarios: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total)
	fmt.Fprintf(f.writer, "Time:      %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("runspec"), version)
}
