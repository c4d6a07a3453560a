// Package config loads the signup server's YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr = ":8000"

	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"

	defaultMetricsPrefix = "signup"
	defaultJobName       = "signup"
)

// Config represents the complete server configuration
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	// Path to a YAML list of activities. Empty means the embedded default set.
	SeedFile   string           `yaml:"seed_file"`
	Logging    LoggingConfig    `yaml:"logging"`
	Report     ReportConfig     `yaml:"report"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8000
	Addr string `yaml:"addr"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// ReportConfig controls the periodic occupancy report.
type ReportConfig struct {
	// 5 field cron spec. Empty disables the report.
	Schedule string `yaml:"schedule"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	// Base URL of a Prometheus remote write endpoint. When set, occupancy
	// reports are pushed there in addition to being exposed on /metrics.
	PushURL       string `yaml:"push_url"`
	MetricsPrefix string `yaml:"metrics_prefix"`
	JobName       string `yaml:"job_name"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.Listener.Addr == "" {
		return fmt.Errorf("listener address is required")
	}
	if c.Monitoring.PushURL != "" {
		u, err := url.Parse(c.Monitoring.PushURL)
		if err != nil {
			return fmt.Errorf("invalid push URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("push URL must be http or https, got %q", c.Monitoring.PushURL)
		}
		if u.Host == "" {
			return fmt.Errorf("push URL %q has no host", c.Monitoring.PushURL)
		}
	}
	return nil
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
