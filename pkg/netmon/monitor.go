package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/psm-tools/srvdetect/pkg/reporting"
)

// Monitor polls the connection table for one process and accumulates newly
// seen ESTABLISHED connections. Each remote endpoint is recorded exactly
// once, timestamped at the poll that first observed it.
type Monitor struct {
	enum     Enumerator
	log      *reporting.Logger
	pid      int
	interval time.Duration

	mutex   sync.RWMutex
	records []evidence.ConnectionRecord
	seen    map[string]struct{}
	running bool
	warned  bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// MonitorConfig contains monitor configuration.
type MonitorConfig struct {
	Enumerator Enumerator
	Logger     *reporting.Logger
	PID        int
	Interval   time.Duration
}

// NewMonitor creates a connection monitor. A zero interval selects one
// second; a nil enumerator selects the platform backend.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Enumerator == nil {
		cfg.Enumerator = NewEnumerator()
	}
	if cfg.Logger == nil {
		cfg.Logger = reporting.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Monitor{
		enum:     cfg.Enumerator,
		log:      cfg.Logger,
		pid:      cfg.PID,
		interval: cfg.Interval,
		seen:     make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins polling in the background.
func (m *Monitor) Start(ctx context.Context) {
	m.mutex.Lock()
	if m.running {
		m.mutex.Unlock()
		return
	}
	m.running = true
	m.mutex.Unlock()

	go m.pollLoop(ctx)
}

// Stop ends polling and waits for the loop to acknowledge, so no record is
// appended after Stop returns.
func (m *Monitor) Stop() {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return
	}
	m.running = false
	m.mutex.Unlock()

	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// take an initial sample before the first tick
	m.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// pollOnce takes one snapshot and appends records not present in any earlier
// snapshot. An enumeration failure degrades to an empty sample; the first
// failure is surfaced as a warning, later ones at debug.
func (m *Monitor) pollOnce(ctx context.Context) {
	snapshot, err := m.enum.Connections(ctx, m.pid)
	if err != nil {
		m.mutex.Lock()
		if !m.warned {
			m.warned = true
			m.mutex.Unlock()
			m.log.Warn("Connection enumeration unavailable, continuing without network evidence",
				"backend", m.enum.Name(), "error", err)
			return
		}
		m.mutex.Unlock()
		m.log.Debug("Connection enumeration failed for sample", "error", err)
		return
	}

	now := time.Now()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, rec := range snapshot {
		key := rec.Key()
		if _, dup := m.seen[key]; dup {
			continue
		}
		m.seen[key] = struct{}{}
		rec.ObservedAt = now
		m.records = append(m.records, rec)
		m.log.Info("New connection observed",
			"remote", key, "game_server", rec.LikelyGameServer())
	}
}

// Records returns a copy of everything observed so far.
func (m *Monitor) Records() []evidence.ConnectionRecord {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]evidence.ConnectionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Degraded reports whether enumeration has failed at least once.
func (m *Monitor) Degraded() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.warned
}
