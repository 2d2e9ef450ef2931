package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents one scenario
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single step
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a step failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped step
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats run results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *engine.RunResult) {
	for _, sc := range result.Scenarios {
		suite := JUnitTestSuite{
			Name:      sc.Name,
			Tests:     len(sc.Steps),
			Time:      sc.Duration.Seconds(),
			Timestamp: time.Now().Format(time.RFC3339),
			TestCases: make([]JUnitTestCase, 0, len(sc.Steps)),
		}

		for _, st := range sc.Steps {
			tc := JUnitTestCase{
				Name:      st.Name,
				ClassName: sc.Name,
				Time:      st.Duration.Seconds(),
			}

			switch st.Status {
			case engine.StatusSkipped:
				suite.Skipped++
				tc.Skipped = &JUnitSkipped{}
				if st.Err != nil {
					tc.Skipped.Message = st.Err.Error()
				}
			case engine.StatusFailed:
				suite.Failures++
				tc.Failure = &JUnitFailure{
					Message: "step failed",
					Type:    "StepError",
				}
				if st.Err != nil {
					tc.Failure.Content = st.Err.Error()
				}
			}

			suite.TestCases = append(suite.TestCases, tc)
		}

		// A scenario that failed without a failing step (e.g. a scenario
		// timeout between steps) still needs a failing test case so CI
		// marks the suite red.
		if sc.Status == engine.StatusFailed && suite.Failures == 0 {
			suite.Tests++
			suite.Failures++
			tc := JUnitTestCase{
				Name:      sc.Name,
				ClassName: sc.Name,
				Time:      sc.Duration.Seconds(),
				Failure:   &JUnitFailure{Message: "scenario failed", Type: "ScenarioError"},
			}
			if sc.Err != nil {
				tc.Failure.Content = sc.Err.Error()
			}
			suite.TestCases = append(suite.TestCases, tc)
		}

		f.testSuites = append(f.testSuites, suite)
	}
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors, totalSkipped int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalSkipped += suite.Skipped
	}

	suites := JUnitTestSuites{
		Name:       "runspec",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Skipped:    totalSkipped,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}
