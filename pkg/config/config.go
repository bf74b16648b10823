package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the detector configuration
type Config struct {
	Detector  DetectorConfig  `yaml:"detector"`
	Launch    LaunchConfig    `yaml:"launch"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Scan      ScanConfig      `yaml:"scan"`
	Reporting ReportingConfig `yaml:"reporting"`
}

// DetectorConfig contains general settings
type DetectorConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LaunchConfig contains process launch settings
type LaunchConfig struct {
	JavaBin           string        `yaml:"java_bin"`
	DefaultMemoryFlag string        `yaml:"default_memory_flag"`
	StopGrace         time.Duration `yaml:"stop_grace"`
}

// MonitorConfig contains monitoring window settings
type MonitorConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ScanConfig contains config-scan settings
type ScanConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// ReportingConfig contains report output settings
type ReportingConfig struct {
	OutputDir string `yaml:"output_dir"`
	KeepLastN int    `yaml:"keep_last_n"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Detector: DetectorConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Launch: LaunchConfig{
			JavaBin:           "java",
			DefaultMemoryFlag: "-Xmx512M",
			StopGrace:         5 * time.Second,
		},
		Monitor: MonitorConfig{
			Timeout:      30 * time.Second,
			PollInterval: 1 * time.Second,
		},
		Scan: ScanConfig{
			MaxDepth: 6,
		},
		Reporting: ReportingConfig{
			OutputDir: "./reports",
			KeepLastN: 50,
		},
	}
}

// Load loads configuration from a YAML file, starting from defaults. A
// missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "srvdetect.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Monitor.Timeout <= 0 {
		return fmt.Errorf("monitor.timeout must be positive")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive")
	}
	if c.Launch.JavaBin == "" {
		return fmt.Errorf("launch.java_bin is required")
	}
	if c.Scan.MaxDepth < 1 {
		return fmt.Errorf("scan.max_depth must be at least 1")
	}
	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("reporting.output_dir is required")
	}
	return nil
}
