package reporting_test

import (
	"os"
	"testing"
	"time"

	"github.com/psm-tools/srvdetect/pkg/evidence"
	"github.com/psm-tools/srvdetect/pkg/reporting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(runID string) *reporting.DetectionReport {
	return &reporting.DetectionReport{
		RunID:     runID,
		TargetDir: "/srv/game",
		StartTime: time.Now().Add(-30 * time.Second),
		EndTime:   time.Now(),
		Duration:  "30s",
		Launched:  true,
		Launch:    reporting.LaunchInfo{JarPath: "/srv/game/Loader.jar"},
		Primary: &evidence.AddressCandidate{
			Host: "www.example-server.com", Port: 43594,
			Source: evidence.SourceConnection,
		},
	}
}

func TestStorageSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	storage, err := reporting.NewStorage(dir, 10, nil)
	require.NoError(t, err)

	path, err := storage.SaveReport(sampleReport("run-1"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := storage.LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	require.NotNil(t, loaded.Primary)
	assert.Equal(t, "www.example-server.com", loaded.Primary.Host)
	assert.Equal(t, 43594, loaded.Primary.Port)
}

func TestStorageList(t *testing.T) {
	dir := t.TempDir()
	storage, err := reporting.NewStorage(dir, 10, nil)
	require.NoError(t, err)

	_, err = storage.SaveReport(sampleReport("run-a"))
	require.NoError(t, err)

	undetermined := sampleReport("run-b")
	undetermined.Primary = nil
	_, err = storage.SaveReport(undetermined)
	require.NoError(t, err)

	summaries, err := storage.ListReports()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	determined := 0
	for _, s := range summaries {
		assert.Equal(t, "/srv/game", s.TargetDir)
		if s.Determined {
			determined++
		}
	}
	assert.Equal(t, 1, determined)
}

func TestStoragePrune(t *testing.T) {
	dir := t.TempDir()
	storage, err := reporting.NewStorage(dir, 2, nil)
	require.NoError(t, err)

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		_, err := storage.SaveReport(sampleReport(id))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond) // distinct mtimes for ordering
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
