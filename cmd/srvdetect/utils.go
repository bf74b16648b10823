package main

import (
	"fmt"
	"os"

	"github.com/psm-tools/srvdetect/pkg/config"
	"github.com/psm-tools/srvdetect/pkg/reporting"
)

// loadConfig loads the configuration file, falling back to defaults when it
// does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the run logger. It writes to stderr so stdout carries only
// the report.
func newLogger(cfg *config.Config) *reporting.Logger {
	logLevel := reporting.LogLevel(cfg.Detector.LogLevel)
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	return reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Detector.LogFormat),
		Output: os.Stderr,
	})
}
