// Package config provides configuration loading and management for stereodisparity.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"stereodisparity/pkg/correlation"
)

// ErrInvalidConfig is wrapped by every error returned from Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Block-matching parameters
	Correlation struct {
		// CrossHeight is the half-height of the matching window in pixels
		CrossHeight int `yaml:"crossHeight"`

		// CrossWidth is the half-width of the matching window in pixels
		CrossWidth int `yaml:"crossWidth"`

		// MinValidDisparity is the smallest offset searched
		MinValidDisparity int `yaml:"minValidDisparity"`

		// MaxValidDisparity is the largest offset searched (at most 255)
		MaxValidDisparity int `yaml:"maxValidDisparity"`

		// RatioThreshold rejects matches whose min/max cost ratio is not below it
		RatioThreshold float64 `yaml:"ratioThreshold"`
	} `yaml:"correlation"`

	// Box filter parameters
	Filter struct {
		// Radius is the kernel half-extent used for both passes
		Radius int `yaml:"radius"`
	} `yaml:"filter"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many row bands are correlated concurrently
		NumWorkers int `yaml:"numWorkers"`

		// Preprocess enables the box filter on both halves before matching
		Preprocess bool `yaml:"preprocess"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary images are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Histogram writes a disparity histogram plot next to the intermediary results
		Histogram bool `yaml:"histogram"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is a zerolog level name (debug, info, warn, error)
		Level string `yaml:"level"`

		// Console selects human-readable output instead of JSON lines
		Console bool `yaml:"console"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default correlation parameters
	defaults := correlation.DefaultParams()
	cfg.Correlation.CrossHeight = defaults.CrossHeight
	cfg.Correlation.CrossWidth = defaults.CrossWidth
	cfg.Correlation.MinValidDisparity = defaults.MinValidDisparity
	cfg.Correlation.MaxValidDisparity = defaults.MaxValidDisparity
	cfg.Correlation.RatioThreshold = defaults.RatioThreshold

	// Set default filter parameters
	cfg.Filter.Radius = 5

	// Set default processing parameters
	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Preprocess = false

	// Set default output parameters
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Histogram = true

	// Set default logging parameters
	cfg.Logging.Level = "info"
	cfg.Logging.Console = true

	return cfg
}

// CorrelationParams converts the correlation section into the parameter
// struct consumed by the correlator
func (c *Config) CorrelationParams() correlation.Params {
	return correlation.Params{
		CrossWidth:        c.Correlation.CrossWidth,
		CrossHeight:       c.Correlation.CrossHeight,
		MinValidDisparity: c.Correlation.MinValidDisparity,
		MaxValidDisparity: c.Correlation.MaxValidDisparity,
		RatioThreshold:    c.Correlation.RatioThreshold,
	}
}

// Validate reports the first inconsistent setting
func (c *Config) Validate() error {
	if err := c.CorrelationParams().Validate(); err != nil {
		return fmt.Errorf("%w: correlation: %v", ErrInvalidConfig, err)
	}
	if c.Filter.Radius < 0 {
		return fmt.Errorf("%w: filter radius must be non-negative, got %d", ErrInvalidConfig, c.Filter.Radius)
	}
	if c.Processing.NumWorkers < 0 {
		return fmt.Errorf("%w: numWorkers must be non-negative, got %d", ErrInvalidConfig, c.Processing.NumWorkers)
	}
	if c.Output.SaveIntermediaryResults && c.Output.IntermediaryDir == "" {
		return fmt.Errorf("%w: intermediaryDir is required when saving intermediary results", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults so omitted keys keep their values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
