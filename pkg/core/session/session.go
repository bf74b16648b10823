// Package session coordinates one detection run: it launches the resolved
// configuration, monitors output and the connection table concurrently under
// a single timeout, and reconciles the evidence into a report.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/psm-tools/srvdetect/pkg/analyze"
	"github.com/psm-tools/srvdetect/pkg/config"
	"github.com/psm-tools/srvdetect/pkg/launch"
	"github.com/psm-tools/srvdetect/pkg/netmon"
	"github.com/psm-tools/srvdetect/pkg/reporting"
	"github.com/psm-tools/srvdetect/pkg/supervise"
)

// Session executes the dynamic phase of a detection run.
type Session struct {
	cfg        *config.Config
	log        *reporting.Logger
	supervisor *supervise.Supervisor
	builder    *reporting.Builder
	enum       netmon.Enumerator
}

// Option customizes a Session.
type Option func(*Session)

// WithEnumerator overrides the platform connection enumerator.
func WithEnumerator(enum netmon.Enumerator) Option {
	return func(s *Session) { s.enum = enum }
}

// New creates a session.
func New(cfg *config.Config, log *reporting.Logger, opts ...Option) *Session {
	if log == nil {
		log = reporting.Nop()
	}
	s := &Session{
		cfg:        cfg,
		log:        log,
		supervisor: supervise.New(log, cfg.Launch.StopGrace),
		builder:    reporting.NewBuilder(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.enum == nil {
		s.enum = netmon.NewEnumerator()
	}
	return s
}

// Run spawns the detected configuration and monitors it until the timeout
// elapses, the process exits, or ctx is cancelled. Both monitoring
// activities are stopped and drained before the report is built, so partial
// evidence is never lost and nothing is accepted after stop. Only the spawn
// itself can fail; every monitoring-phase failure degrades into warnings on
// the report.
func (s *Session) Run(ctx context.Context, detection *launch.Detection, targetDir string) (*reporting.DetectionReport, error) {
	report := &reporting.DetectionReport{
		RunID:     reporting.NewRunID(),
		TargetDir: targetDir,
		StartTime: time.Now(),
		Launched:  true,
		Launch:    launchInfo(detection.Config),
	}

	argv := detection.Config.Command(s.cfg.Launch.JavaBin)
	handle, err := s.supervisor.Start(argv, detection.Config.WorkDir)
	if err != nil {
		return nil, err
	}

	s.log.Info("Monitoring output and network connections",
		"pid", handle.PID(), "timeout", s.cfg.Monitor.Timeout)
	s.log.Info("If the process raises a dialog, interact with it manually; " +
		"the monitoring timeout is the safety net")

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Monitor.Timeout)
	defer cancel()

	monitor := netmon.NewMonitor(netmon.MonitorConfig{
		Enumerator: s.enum,
		Logger:     s.log,
		PID:        handle.PID(),
		Interval:   s.cfg.Monitor.PollInterval,
	})
	monitor.Start(runCtx)

	analyzer := analyze.New(s.log)
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		// drain until the channel closes so the supervisor's pipe readers
		// never stall; lines arriving after cancellation are discarded
		for line := range handle.Lines() {
			select {
			case <-runCtx.Done():
				continue
			default:
			}
			s.log.Debug("Process output", "line", line)
			analyzer.Analyze(line)
		}
	}()

	select {
	case <-runCtx.Done():
		s.log.Info("Monitoring window elapsed")
	case <-handle.Exited():
		s.log.Info("Process exited before the monitoring window elapsed")
	}

	// stop order: no new evidence after this point, then terminate the
	// process, then wait for both activities to acknowledge
	cancel()
	monitor.Stop()
	s.supervisor.Stop(handle)
	readers.Wait()

	if monitor.Degraded() {
		report.Warnings = append(report.Warnings,
			"connection enumeration unavailable; result built from config and output evidence only")
	}

	s.builder.Build(report, detection.Candidates, monitor.Records(), analyzer.Candidates())

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime).Round(time.Millisecond).String()
	return report, nil
}

// BuildStatic builds a report from static evidence only, for --no-launch
// runs.
func (s *Session) BuildStatic(detection *launch.Detection, targetDir string) *reporting.DetectionReport {
	report := &reporting.DetectionReport{
		RunID:     reporting.NewRunID(),
		TargetDir: targetDir,
		StartTime: time.Now(),
		Launched:  false,
		Launch:    launchInfo(detection.Config),
	}
	s.builder.Build(report, detection.Candidates, nil, nil)
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime).Round(time.Millisecond).String()
	return report
}

func launchInfo(cfg *launch.LaunchConfig) reporting.LaunchInfo {
	return reporting.LaunchInfo{
		JarPath:   cfg.JarPath,
		WorkDir:   cfg.WorkDir,
		Script:    cfg.Script,
		JavaArgs:  cfg.JavaArgs,
		ConfigURL: cfg.ConfigURL,
		MainClass: cfg.MainClass,
	}
}
