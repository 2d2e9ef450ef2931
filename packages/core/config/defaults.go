package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 5,
		MaxFailures: 0, // unlimited
		Timeout:     0, // no scenario timeout
		StepTimeout: 30000,
		Retry: &RetryConfig{
			MaxAttempts: 1,
			Backoff:     "linear",
			BaseDelay:   1000,
		},
		Reporters: []string{"console"},
		OutputDir: "",
		Verbose:   boolPtr(false),
		NoColor:   boolPtr(false),
	}
}
