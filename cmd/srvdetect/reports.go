package main

import (
	"fmt"
	"os"

	"github.com/psm-tools/srvdetect/pkg/reporting"
	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Args:  cobra.NoArgs,
	Short: "List saved detection reports",
	Long:  `Lists the reports kept in the configured output directory, newest first.`,
	RunE:  runReports,
}

func init() {
	reportsCmd.Flags().String("show", "", "print the report stored at the given path")
	reportsCmd.Flags().String("format", "text", "output format for --show (text, json)")
}

func runReports(cmd *cobra.Command, args []string) error {
	showPath, _ := cmd.Flags().GetString("show")
	outputFormat, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("opening report storage: %w", err)
	}

	if showPath != "" {
		report, err := storage.LoadReport(showPath)
		if err != nil {
			return fmt.Errorf("loading report: %w", err)
		}
		return reporting.NewFormatter().Write(os.Stdout, report, reporting.ReportFormat(outputFormat))
	}

	summaries, err := storage.ListReports()
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No reports found.")
		return nil
	}
	for _, s := range summaries {
		status := "not determined"
		if s.Determined {
			status = "determined"
		}
		fmt.Printf("%s  %-14s  %s  %s\n",
			s.StartTime.Format("2006-01-02 15:04:05"), status, s.RunID, s.TargetDir)
	}
	return nil
}
