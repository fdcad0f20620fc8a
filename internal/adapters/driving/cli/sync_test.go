package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// mockRunner is a test double for the sync service.
type mockRunner struct {
	initErr     error
	cycleResult *domain.CycleResult
	cycleSeq    []*domain.CycleResult
	cycleCalls  int
	cycleErr    error
	stats       *domain.SyncStats
	statsErr    error
	reprocessed []string
	resetAll    bool
	stopCalled  bool
}

func (m *mockRunner) Initialize(context.Context) error { return m.initErr }

func (m *mockRunner) RunSyncCycle(context.Context) (*domain.CycleResult, error) {
	m.cycleCalls++
	if m.cycleErr != nil {
		return nil, m.cycleErr
	}
	if len(m.cycleSeq) > 0 {
		r := m.cycleSeq[0]
		m.cycleSeq = m.cycleSeq[1:]
		return r, nil
	}
	if m.cycleResult != nil {
		return m.cycleResult, nil
	}
	return &domain.CycleResult{}, nil
}

func (m *mockRunner) Stats(context.Context) (*domain.SyncStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &domain.SyncStats{}, nil
}

func (m *mockRunner) RequestStop() { m.stopCalled = true }

func (m *mockRunner) Reprocess(fileID string) error {
	m.reprocessed = append(m.reprocessed, fileID)
	return nil
}

func (m *mockRunner) ReprocessAll() error {
	m.resetAll = true
	return nil
}

// execute runs the root command with args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func withMockRunner(t *testing.T, m *mockRunner) {
	t.Helper()
	old := syncRunner
	syncRunner = m
	t.Cleanup(func() { syncRunner = old })
}

func TestSyncCommand(t *testing.T) {
	withMockRunner(t, &mockRunner{
		cycleResult: &domain.CycleResult{Found: 3, Processed: 2, Failed: 1},
	})

	out, err := execute(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 3 file(s) to process: 2 succeeded, 1 failed.")
}

func TestSyncCommand_StoppedCycle(t *testing.T) {
	withMockRunner(t, &mockRunner{
		cycleResult: &domain.CycleResult{Found: 5, Processed: 1, Stopped: true},
	})

	out, err := execute(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "stopped early")
}

func TestSyncCommand_InitializeFails(t *testing.T) {
	withMockRunner(t, &mockRunner{initErr: errors.New("bad credentials")})

	_, err := execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialise")
}

func TestSyncCommand_CycleFails(t *testing.T) {
	withMockRunner(t, &mockRunner{cycleErr: errors.New("api down")})

	_, err := execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestSyncCommand_BudgetExhausted(t *testing.T) {
	withMockRunner(t, &mockRunner{
		cycleResult: &domain.CycleResult{Found: 4, Processed: 1, BudgetExhausted: true},
	})

	out, err := execute(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Budget exhausted")
}

func TestWatchCommand_ContinuesAfterBudgetDenial(t *testing.T) {
	m := &mockRunner{
		cycleSeq: []*domain.CycleResult{
			{Found: 3, Processed: 1, BudgetExhausted: true},
			{Stopped: true},
		},
	}
	withMockRunner(t, m)

	out, err := execute(t, "watch", "--interval", "1ms")
	require.NoError(t, err)

	assert.Equal(t, 2, m.cycleCalls, "a budget-exhausted cycle must not end the watch loop")
	assert.Contains(t, out, "Budget exhausted")
}

func TestSyncCommand_ConfigErrorsSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[drive\nfolder_id ="), 0o600))

	cfgPath = path
	folderOverride = "some-folder"
	t.Cleanup(func() {
		cfgPath = ""
		folderOverride = ""
	})

	// No injected runner: the command builds the real app and must fail
	// on the broken file instead of silently using defaults.
	_, err := execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestStatsCommand(t *testing.T) {
	withMockRunner(t, &mockRunner{
		stats: &domain.SyncStats{
			Store:        domain.StoreStats{Documents: 4, Vectors: 20, AvgVectorsPerDoc: 5},
			TrackedFiles: 4,
			DailyCostUSD: 0.25,
			DailyCostCap: 10,
			RequestsUsed: 12,
		},
	})

	out, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:        4")
	assert.Contains(t, out, "Vectors:          20")
	assert.Contains(t, out, "$0.2500 of $10.00")
}

func TestReprocessCommand(t *testing.T) {
	m := &mockRunner{}
	withMockRunner(t, m)

	out, err := execute(t, "reprocess", "file-123")
	require.NoError(t, err)
	assert.Contains(t, out, "file-123")
	assert.Equal(t, []string{"file-123"}, m.reprocessed)
}

func TestReprocessCommand_AllFiles(t *testing.T) {
	m := &mockRunner{}
	withMockRunner(t, m)

	out, err := execute(t, "reprocess")
	require.NoError(t, err)
	assert.Contains(t, out, "All files")
	assert.True(t, m.resetAll)
	assert.Empty(t, m.reprocessed)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "drivesync version")
}
