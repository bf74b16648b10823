package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/psm-tools/srvdetect/pkg/core/session"
	"github.com/psm-tools/srvdetect/pkg/launch"
	"github.com/psm-tools/srvdetect/pkg/reporting"
	"github.com/psm-tools/srvdetect/pkg/scan"
	"github.com/spf13/cobra"
)

// errNoPrimary marks a run that completed without determining a primary
// address. main maps it to exit code 1.
var errNoPrimary = errors.New("no primary server address determined")

var detectCmd = &cobra.Command{
	Use:   "detect <target-directory>",
	Args:  cobra.ExactArgs(1),
	Short: "Run server address detection against an installation directory",
	Long: `Resolves the launch configuration of the installation, starts the server
process, and monitors its connections and output until the timeout elapses or
the process exits. With --no-launch only static evidence (scripts and config
files) is used.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().Int("timeout", 0, "monitoring window in seconds (overrides config)")
	detectCmd.Flags().Bool("no-launch", false, "static analysis only, do not start the process")
	detectCmd.Flags().String("format", "text", "output format (text, json)")
	detectCmd.Flags().Int("poll-interval", 0, "connection poll interval in seconds (overrides config)")
}

func runDetect(cmd *cobra.Command, args []string) error {
	targetDir := args[0]
	timeoutSec, _ := cmd.Flags().GetInt("timeout")
	noLaunch, _ := cmd.Flags().GetBool("no-launch")
	outputFormat, _ := cmd.Flags().GetString("format")
	pollSec, _ := cmd.Flags().GetInt("poll-interval")

	format := reporting.ReportFormat(outputFormat)
	if format != reporting.ReportFormatText && format != reporting.ReportFormatJSON {
		return fmt.Errorf("unknown output format %q (want text or json)", outputFormat)
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if timeoutSec > 0 {
		cfg.Monitor.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if pollSec > 0 {
		cfg.Monitor.PollInterval = time.Duration(pollSec) * time.Second
	}

	logger := newLogger(cfg)
	logger.Info("Server detector starting", "version", version, "dir", targetDir)

	info, err := os.Stat(targetDir)
	if err != nil {
		return fmt.Errorf("target directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target %s is not a directory", targetDir)
	}

	// Resolve how the server is launched
	resolver := launch.NewResolver(logger, scan.New(logger, cfg.Scan.MaxDepth), cfg.Launch.DefaultMemoryFlag)
	detection, err := resolver.Detect(targetDir)
	if err != nil {
		return fmt.Errorf("resolving launch configuration for %s: %w", targetDir, err)
	}
	logger.Info("Launch configuration resolved",
		"jar", detection.Config.JarPath, "script", detection.Config.Script)

	sess := session.New(cfg, logger)

	var report *reporting.DetectionReport
	if noLaunch {
		logger.Info("Skipping launch, static evidence only")
		report = sess.BuildStatic(detection, targetDir)
	} else {
		report, err = sess.Run(context.Background(), detection, targetDir)
		if err != nil {
			return fmt.Errorf("detection run failed: %w", err)
		}
	}

	// Persist the report; a storage failure degrades the run, never fails it
	if storage, serr := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger); serr != nil {
		logger.Warn("Report storage unavailable", "error", serr)
	} else if path, serr := storage.SaveReport(report); serr != nil {
		logger.Warn("Failed to save report", "error", serr)
	} else {
		logger.Debug("Report saved", "path", path)
	}

	if err := reporting.NewFormatter().Write(os.Stdout, report, format); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if !report.Determined() {
		return errNoPrimary
	}
	logger.Info("Primary address determined", "endpoint", report.Primary.Endpoint())
	return nil
}
