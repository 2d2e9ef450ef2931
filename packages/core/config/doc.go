// Package config handles configuration loading and management for runspec.
//
// It provides functionality for:
//   - Loading configuration from .runspec.config.json or .runspecrc files
//   - Default configuration values
//   - Merging file config with command-line overrides
package config
