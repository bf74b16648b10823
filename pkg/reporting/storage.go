package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Storage persists detection reports as JSON files with keep-last-N pruning.
type Storage struct {
	outputDir string
	keepLastN int
	log       *Logger
}

// NewStorage creates a storage instance, creating the output directory if
// needed.
func NewStorage(outputDir string, keepLastN int, log *Logger) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if log == nil {
		log = Nop()
	}
	return &Storage{outputDir: outputDir, keepLastN: keepLastN, log: log}, nil
}

// SaveReport writes the report to a timestamped JSON file and prunes old
// reports beyond the retention limit.
func (s *Storage) SaveReport(report *DetectionReport) (string, error) {
	filename := fmt.Sprintf("detect-%s-%s.json",
		report.StartTime.Format("20060102-150405"), report.RunID)
	path := filepath.Join(s.outputDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	s.log.Info("Detection report saved", "path", path)

	if s.keepLastN > 0 {
		if err := s.prune(); err != nil {
			s.log.Warn("Failed to prune old reports", "error", err)
		}
	}
	return path, nil
}

// LoadReport reads a previously saved report.
func (s *Storage) LoadReport(path string) (*DetectionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	var report DetectionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ReportSummary describes one stored report.
type ReportSummary struct {
	RunID      string    `json:"run_id"`
	TargetDir  string    `json:"target_dir"`
	StartTime  time.Time `json:"start_time"`
	Determined bool      `json:"determined"`
	Filepath   string    `json:"filepath"`
}

// ListReports lists stored reports, newest first.
func (s *Storage) ListReports() ([]ReportSummary, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	summaries := make([]ReportSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.outputDir, entry.Name())
		report, err := s.LoadReport(path)
		if err != nil {
			s.log.Warn("Skipping unreadable report", "path", path, "error", err)
			continue
		}
		summaries = append(summaries, ReportSummary{
			RunID:      report.RunID,
			TargetDir:  report.TargetDir,
			StartTime:  report.StartTime,
			Determined: report.Determined(),
			Filepath:   path,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
	return summaries, nil
}

func (s *Storage) prune() error {
	summaries, err := s.ListReports()
	if err != nil {
		return err
	}
	if len(summaries) <= s.keepLastN {
		return nil
	}
	for _, old := range summaries[s.keepLastN:] {
		if err := os.Remove(old.Filepath); err != nil {
			s.log.Warn("Failed to delete old report", "path", old.Filepath, "error", err)
		}
	}
	return nil
}
