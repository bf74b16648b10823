package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnumerator replays a fixed sequence of snapshots, repeating the last
// one once the sequence is exhausted.
type fakeEnumerator struct {
	mu        sync.Mutex
	snapshots [][]evidence.ConnectionRecord
	calls     int
	err       error
}

func (f *fakeEnumerator) Name() string { return "fake" }

func (f *fakeEnumerator) Connections(_ context.Context, _ int) ([]evidence.ConnectionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls
	if idx >= len(f.snapshots) {
		idx = len(f.snapshots) - 1
	}
	f.calls++
	return f.snapshots[idx], nil
}

func record(remote string, port int) evidence.ConnectionRecord {
	return evidence.ConnectionRecord{
		LocalAddr:  "10.0.0.5",
		LocalPort:  50123,
		RemoteAddr: remote,
		RemotePort: port,
		State:      "ESTABLISHED",
	}
}

func TestMonitorIdenticalSnapshotsYieldOneRecord(t *testing.T) {
	enum := &fakeEnumerator{snapshots: [][]evidence.ConnectionRecord{
		{record("203.0.113.10", 43594)},
	}}
	m := NewMonitor(MonitorConfig{Enumerator: enum, PID: 4321})

	ctx := context.Background()
	m.pollOnce(ctx)
	m.pollOnce(ctx)
	m.pollOnce(ctx)

	records := m.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "203.0.113.10", records[0].RemoteAddr)
	assert.False(t, records[0].ObservedAt.IsZero())
}

func TestMonitorNewEndpointAppendsOnce(t *testing.T) {
	enum := &fakeEnumerator{snapshots: [][]evidence.ConnectionRecord{
		{record("203.0.113.10", 43594)},
		{record("203.0.113.10", 43594), record("203.0.113.11", 443)},
	}}
	m := NewMonitor(MonitorConfig{Enumerator: enum})

	ctx := context.Background()
	m.pollOnce(ctx)
	require.Len(t, m.Records(), 1)

	m.pollOnce(ctx)
	records := m.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "203.0.113.11", records[1].RemoteAddr)
}

func TestMonitorDegradesOnEnumerationFailure(t *testing.T) {
	enum := &fakeEnumerator{err: errors.New("permission denied")}
	m := NewMonitor(MonitorConfig{Enumerator: enum})

	m.pollOnce(context.Background())
	m.pollOnce(context.Background())

	assert.True(t, m.Degraded())
	assert.Empty(t, m.Records())
}

func TestMonitorStartStop(t *testing.T) {
	enum := &fakeEnumerator{snapshots: [][]evidence.ConnectionRecord{
		{record("203.0.113.10", 43594)},
	}}
	m := NewMonitor(MonitorConfig{Enumerator: enum, Interval: 5 * time.Millisecond})

	m.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	m.Stop()

	// Stop waited for the loop, so the record set is frozen now
	records := m.Records()
	require.Len(t, records, 1)
	assert.Equal(t, records, m.Records())

	// idempotent
	m.Stop()
}

func TestMonitorRecordsReturnsCopy(t *testing.T) {
	enum := &fakeEnumerator{snapshots: [][]evidence.ConnectionRecord{
		{record("203.0.113.10", 43594)},
	}}
	m := NewMonitor(MonitorConfig{Enumerator: enum})
	m.pollOnce(context.Background())

	first := m.Records()
	first[0].RemoteAddr = "mutated"
	assert.Equal(t, "203.0.113.10", m.Records()[0].RemoteAddr)
}
