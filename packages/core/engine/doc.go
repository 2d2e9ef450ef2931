// Package engine executes scenarios against external systems.
//
// It provides functionality for:
//   - Running sets of scenarios with bounded concurrency
//   - Strictly sequential step execution within a scenario
//   - Per-attempt and per-scenario time budgets
//   - Retry with linear or exponential backoff
//   - Fail-fast thresholds and cooperative cancellation
//   - Guaranteed reverse-order release of acquired resources
//
// Scenario and step definitions are plain data, typically produced by the
// scenario builder package or loaded from suite files; the engine only
// interprets them.
package engine
