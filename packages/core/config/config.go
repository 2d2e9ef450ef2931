package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/abdul-hamid-achik/runspec/packages/core/retry"
)

// RetryConfig is the default retry policy applied to steps without one
type RetryConfig struct {
	MaxAttempts int    `json:"maxAttempts,omitempty"`
	Backoff     string `json:"backoff,omitempty"`   // "linear" or "exponential"
	BaseDelay   int    `json:"baseDelay,omitempty"` // milliseconds
}

// Config represents the runspec configuration
type Config struct {
	Concurrency int          `json:"concurrency,omitempty"` // Number of scenarios per batch
	MaxFailures int          `json:"maxFailures,omitempty"` // Abort the run after this many failures
	Timeout     int          `json:"timeout,omitempty"`     // Default scenario timeout, milliseconds
	StepTimeout int          `json:"stepTimeout,omitempty"` // Default step timeout, milliseconds
	Retry       *RetryConfig `json:"retry,omitempty"`
	RateLimit   float64      `json:"rateLimit,omitempty"` // Scenario launches per second
	Reporters   []string     `json:"reporters,omitempty"` // Output reporters
	OutputDir   string       `json:"outputDir,omitempty"` // Directory for output files
	Verbose     *bool        `json:"verbose,omitempty"`
	NoColor     *bool        `json:"noColor,omitempty"`
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".runspec.config.json",
	"runspec.config.json",
	".runspecrc",
	".runspecrc.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks config values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("maxFailures must be >= 0, got %d", c.MaxFailures)
	}
	if c.Retry != nil {
		switch c.Retry.Backoff {
		case "", "linear", "exponential":
		default:
			return fmt.Errorf("retry.backoff must be \"linear\" or \"exponential\", got %q", c.Retry.Backoff)
		}
	}
	for _, r := range c.Reporters {
		switch r {
		case "console", "json", "junit", "tap":
		default:
			return fmt.Errorf("unknown reporter %q", r)
		}
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.MaxFailures > 0 {
		result.MaxFailures = other.MaxFailures
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.StepTimeout > 0 {
		result.StepTimeout = other.StepTimeout
	}
	if other.Retry != nil {
		result.Retry = other.Retry
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// Engine converts the file config into the runner's config
func (c *Config) Engine() *engine.Config {
	ec := &engine.Config{
		MaxConcurrency: c.Concurrency,
		MaxFailures:    c.MaxFailures,
		Timeout:        time.Duration(c.Timeout) * time.Millisecond,
		StepTimeout:    time.Duration(c.StepTimeout) * time.Millisecond,
		RateLimit:      c.RateLimit,
	}

	if c.Retry != nil && c.Retry.MaxAttempts > 0 {
		ec.Retry = retry.Policy{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   time.Duration(c.Retry.BaseDelay) * time.Millisecond,
		}
		if c.Retry.Backoff == "exponential" {
			ec.Retry.Backoff = retry.Exponential
		}
	}

	return ec
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
