// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all agent configuration.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	API        APIConfig        `yaml:"api"`
	Collection CollectionConfig `yaml:"collection"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AgentConfig identifies this agent instance.
type AgentConfig struct {
	ID       string `yaml:"id"`
	Hostname string `yaml:"hostname"`
}

// APIConfig holds ingestion API connection settings.
type APIConfig struct {
	Endpoint            string `yaml:"endpoint"`
	APIKey              string `yaml:"api_key"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	MaxRetries          int    `yaml:"max_retries"`
	RetryBackoffSeconds int    `yaml:"retry_backoff_seconds"`
}

// CollectionConfig holds metric collection settings.
type CollectionConfig struct {
	IntervalSeconds      int        `yaml:"interval_seconds"`
	FlushIntervalSeconds int        `yaml:"flush_interval_seconds"`
	BatchSize            int        `yaml:"batch_size"`
	Disk                 DiskConfig `yaml:"disk"`
}

// DiskConfig holds disk collector settings. Mount-point lists match by
// substring, so excluding "/dev" also excludes "/dev/shm".
type DiskConfig struct {
	Enabled            bool     `yaml:"enabled"`
	IncludeMountPoints []string `yaml:"include_mount_points"`
	ExcludeMountPoints []string `yaml:"exclude_mount_points"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds:      30,
			MaxRetries:          3,
			RetryBackoffSeconds: 2,
		},
		Collection: CollectionConfig{
			IntervalSeconds:      60,
			FlushIntervalSeconds: 10,
			BatchSize:            100,
			Disk: DiskConfig{
				Enabled: true,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables have the highest precedence.
func applyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv("SENTINEL_API_ENDPOINT"); endpoint != "" {
		cfg.API.Endpoint = endpoint
	}
	if key := os.Getenv("SENTINEL_API_KEY"); key != "" {
		cfg.API.APIKey = key
	}
	if level := os.Getenv("SENTINEL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks that the configuration can enter service. Any violation is
// a fatal startup error; none of these are retried at runtime.
func (c *Config) Validate() error {
	if c.Agent.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	if c.API.Endpoint == "" {
		return fmt.Errorf("api endpoint is required")
	}
	if c.API.APIKey != "" && strings.TrimSpace(c.API.APIKey) == "" {
		return fmt.Errorf("api key cannot be blank")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api timeout must be positive, got %d", c.API.TimeoutSeconds)
	}
	if c.API.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.API.MaxRetries)
	}
	if c.Collection.IntervalSeconds <= 0 {
		return fmt.Errorf("collection interval must be positive, got %d", c.Collection.IntervalSeconds)
	}
	if c.Collection.FlushIntervalSeconds <= 0 {
		return fmt.Errorf("flush interval must be positive, got %d", c.Collection.FlushIntervalSeconds)
	}
	if c.Collection.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.Collection.BatchSize)
	}
	return nil
}

// Hostname returns the configured hostname, falling back to the OS hostname.
func (c *Config) Hostname() string {
	if c.Agent.Hostname != "" {
		return c.Agent.Hostname
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// CollectInterval returns the collect timer period.
func (c *Config) CollectInterval() time.Duration {
	return time.Duration(c.Collection.IntervalSeconds) * time.Second
}

// FlushInterval returns the flush timer period.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Collection.FlushIntervalSeconds) * time.Second
}

// APITimeout returns the per-request HTTP timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the base delay for exponential backoff between retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.API.RetryBackoffSeconds) * time.Second
}
