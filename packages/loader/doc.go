// Package loader reads YAML suite files and turns them into scenario
// definitions the engine can run.
//
// A suite file names its scenarios, and each scenario lists steps bound to
// actions from a Registry. Files are validated against a JSON schema before
// parsing, and {{var}} / {{$ENV}} references in step arguments are resolved
// from the suite's vars block and the process environment.
package loader
