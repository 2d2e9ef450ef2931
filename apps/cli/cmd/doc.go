// Package cmd implements the runspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute scenarios from suite files
//   - validate: Check suite file syntax without executing
//   - list: Display all scenarios defined in suite files
//   - init: Create a new runspec project with example files
//   - version: Show runspec version information
//
// The CLI supports various flags for filtering, output formatting,
// concurrency control, and watch mode for development workflows.
package cmd
