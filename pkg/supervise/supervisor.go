// Package supervise spawns the detected launch configuration and exposes its
// interleaved output stream plus liveness and termination controls.
package supervise

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/psm-tools/srvdetect/pkg/reporting"
)

// ErrProcessLaunch wraps spawn failures (missing runtime, bad path). These
// are fatal to the run.
var ErrProcessLaunch = errors.New("failed to launch process")

// Supervisor starts and stops monitored processes.
type Supervisor struct {
	log   *reporting.Logger
	grace time.Duration
}

// New creates a supervisor. grace is how long Stop waits for a graceful exit
// before force-killing; 0 selects 5 seconds.
func New(log *reporting.Logger, grace time.Duration) *Supervisor {
	if log == nil {
		log = reporting.Nop()
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Supervisor{log: log, grace: grace}
}

// Handle tracks one spawned process.
type Handle struct {
	cmd   *exec.Cmd
	lines chan string
	done  chan struct{}

	mu      sync.Mutex
	waitErr error
}

// PID returns the process identifier, available immediately after Start.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Lines is the process's stdout and stderr interleaved, line-buffered. The
// channel is closed once the process exits and both streams drain.
func (h *Handle) Lines() <-chan string {
	return h.lines
}

// Exited is closed when the process has terminated.
func (h *Handle) Exited() <-chan struct{} {
	return h.done
}

func (h *Handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Start spawns the process described by argv in dir. Stdin stays attached to
// the operator's terminal so any dialog the process raises can be handled
// manually; the supervisor never tries to automate UI.
func (s *Supervisor) Start(argv []string, dir string) (*Handle, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrProcessLaunch)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrProcessLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrProcessLaunch, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessLaunch, err)
	}

	h := &Handle{
		cmd:   cmd,
		lines: make(chan string, 256),
		done:  make(chan struct{}),
	}

	s.log.Info("Process started", "pid", h.PID(), "dir", dir, "command", argv)

	var readers sync.WaitGroup
	readers.Add(2)
	for _, stream := range []io.Reader{stdout, stderr} {
		go func(r io.Reader) {
			defer readers.Done()
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				h.lines <- scanner.Text()
			}
		}(stream)
	}

	go func() {
		readers.Wait()
		err := cmd.Wait()
		h.mu.Lock()
		h.waitErr = err
		h.mu.Unlock()
		close(h.lines)
		close(h.done)
	}()

	return h, nil
}

// Stop requests graceful termination, waits up to the grace period, then
// force-kills. Safe to call after the process has already exited.
func (s *Supervisor) Stop(h *Handle) {
	if h == nil || h.exited() {
		return
	}

	s.log.Info("Stopping process", "pid", h.PID())
	if runtime.GOOS == "windows" {
		_ = h.cmd.Process.Kill()
	} else {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-h.done:
		return
	case <-time.After(s.grace):
	}

	s.log.Warn("Process did not exit in time, killing", "pid", h.PID())
	_ = h.cmd.Process.Kill()
	<-h.done
}

// WaitErr reports the process exit error, once Exited is closed.
func (h *Handle) WaitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitErr
}
