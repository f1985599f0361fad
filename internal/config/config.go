// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default limits applied when a value is unset.
const (
	DefaultMaxPages     = 24
	DefaultImageWorkers = 3
	DefaultCallTimeout  = 120 * time.Second
	DefaultOutputDir    = "output"
)

// Config represents the application configuration that can be loaded from a
// JSON file. It is constructed once at process start and passed by reference
// into the orchestrator and server; there are no ambient globals.
type Config struct {
	// Paths
	OutputDir string `json:"output_dir,omitempty"` // Root directory for run artifacts

	// Limits
	MaxPages     int `json:"max_pages,omitempty"`     // Page-count ceiling for requests
	ImageWorkers int `json:"image_workers,omitempty"` // Concurrent image generation calls

	// Timeouts
	CallTimeoutSeconds int `json:"call_timeout_seconds,omitempty"` // Per external call

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	UseBrowser  bool   `json:"use_browser,omitempty"`  // Use headless browser for trend sources
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // Optional PostgreSQL run registry
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxPages < 0 {
		return fmt.Errorf("config error: 'max_pages' must be non-negative")
	}
	if c.ImageWorkers < 0 {
		return fmt.Errorf("config error: 'image_workers' must be non-negative")
	}
	if c.CallTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'call_timeout_seconds' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Int fields: use default if zero
	if result.MaxPages == 0 {
		result.MaxPages = defaults.MaxPages
	}
	if result.ImageWorkers == 0 {
		result.ImageWorkers = defaults.ImageWorkers
	}
	if result.CallTimeoutSeconds == 0 {
		result.CallTimeoutSeconds = defaults.CallTimeoutSeconds
	}

	return result
}

// Defaults returns the built-in default configuration.
func Defaults() Config {
	return Config{
		OutputDir:          DefaultOutputDir,
		MaxPages:           DefaultMaxPages,
		ImageWorkers:       DefaultImageWorkers,
		CallTimeoutSeconds: int(DefaultCallTimeout / time.Second),
	}
}

// CallTimeout returns the per-external-call timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	if c.CallTimeoutSeconds <= 0 {
		return DefaultCallTimeout
	}
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}
