// Package report provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate results before output.
// Progress is a live engine.Reporter that prints scenario results as they
// finish.
package report
