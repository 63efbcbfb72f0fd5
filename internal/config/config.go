// Package config loads shotty settings from an optional YAML or JSON file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"shotty/internal/errors"
)

const (
	// DefaultProfile is the shared config profile used when none is given
	DefaultProfile = "shotty"
	// DefaultSnapshotDescription is attached to every snapshot the tool creates
	DefaultSnapshotDescription = "Created by snapshotAlyzer 30000"
	// DefaultWaitTimeout bounds each wait for an instance state transition
	DefaultWaitTimeout = 10 * time.Minute
	// DefaultMaxRetries is the SDK retryer attempt limit
	DefaultMaxRetries = 3
)

var (
	// OutputFormats lists the accepted values for Output
	OutputFormats = []string{"text", "table"}
	// LogLevels lists the accepted values for LogLevel
	LogLevels = []string{"debug", "info", "warn", "error"}
)

// Config holds the settings for one invocation
type Config struct {
	Profile             string        `yaml:"profile"`
	Region              string        `yaml:"region"`
	WaitTimeout         time.Duration `yaml:"wait_timeout"`
	SnapshotDescription string        `yaml:"snapshot_description"`
	MaxRetries          int           `yaml:"max_retries"`
	LogLevel            string        `yaml:"log_level"`
	Output              string        `yaml:"output"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Profile:             DefaultProfile,
		WaitTimeout:         DefaultWaitTimeout,
		SnapshotDescription: DefaultSnapshotDescription,
		MaxRetries:          DefaultMaxRetries,
		LogLevel:            "info",
		Output:              "text",
	}
}

// Parser reads configuration files
type Parser struct {
	extensions map[string]bool
}

// NewParser creates a new configuration parser
func NewParser() *Parser {
	return &Parser{
		extensions: map[string]bool{
			".yaml": true,
			".yml":  true,
			".json": true,
		},
	}
}

// ParseConfig reads and parses a configuration file on top of the defaults
func (p *Parser) ParseConfig(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, errors.FileError("file path cannot be empty").
			WithSuggestion("Provide a path to a YAML or JSON configuration file")
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	if !p.extensions[ext] {
		return nil, errors.FileError("unsupported file format").
			WithContext("filePath", filePath).
			WithContext("extension", ext).
			WithSuggestion("Use a .yaml, .yml or .json file for configuration")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileErrorWithCause("configuration file does not exist", err).
				WithContext("filePath", filePath).
				WithSuggestion("Check that the file path is correct")
		}
		return nil, errors.FileErrorWithCause("failed to read configuration file", err).
			WithContext("filePath", filePath).
			WithSuggestion("Check file permissions")
	}

	cfg, err := p.ParseConfigFromBytes(data)
	if err != nil {
		return nil, errors.WrapError(err, "", "failed to parse configuration file").
			WithContext("filePath", filePath)
	}

	return cfg, nil
}

// ParseConfigFromBytes parses configuration data. Missing keys keep their defaults.
func (p *Parser) ParseConfigFromBytes(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.ConfigErrorWithCause("invalid configuration format", err).
			WithSuggestion("Check the YAML or JSON syntax").
			WithSuggestion("Supported keys: profile, region, wait_timeout, snapshot_description, max_retries, log_level, output")
	}

	if err := p.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateConfig validates the parsed configuration
func (p *Parser) ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.ValidationError("configuration cannot be nil")
	}

	if cfg.Profile == "" {
		return errors.ValidationError("profile cannot be empty").
			WithSuggestion(fmt.Sprintf("Remove the key to use the default profile %q", DefaultProfile))
	}

	if cfg.WaitTimeout <= 0 {
		return errors.ValidationErrorf("wait_timeout must be positive, got %s", cfg.WaitTimeout).
			WithSuggestion("Use a Go duration such as 10m or 90s")
	}

	if cfg.MaxRetries < 1 {
		return errors.ValidationErrorf("max_retries must be at least 1, got %d", cfg.MaxRetries)
	}

	if !contains(OutputFormats, cfg.Output) {
		return errors.ValidationError("invalid output format").
			WithContext("output", cfg.Output).
			WithSuggestion("Use one of: " + strings.Join(OutputFormats, ", "))
	}

	if !contains(LogLevels, cfg.LogLevel) {
		return errors.ValidationError("invalid log level").
			WithContext("logLevel", cfg.LogLevel).
			WithSuggestion("Use one of: " + strings.Join(LogLevels, ", "))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
