package limiter

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/logger"
)

func testConfig() BudgetConfig {
	return BudgetConfig{
		MaxRequestsPerMinute: 100,
		MaxRequestsPerHour:   3000,
		MaxRequestsPerDay:    100000,
		MaxDailyCostUSD:      10.00,
		CostPerEmbedding:     0.000002,
		CostPerCompletion:    0.01,
	}
}

func TestCheckAllowed_UnderBudget(t *testing.T) {
	b := NewBudget(testConfig(), "", logger.Nop())
	assert.NoError(t, b.CheckAllowed(OpEmbedding, 100))
}

func TestCheckAllowed_DailyCostCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyCostUSD = 1.00
	cfg.CostPerCompletion = 0.50
	b := NewBudget(cfg, "", logger.Nop())

	// Two half-dollar usages fill the cap exactly.
	require.NoError(t, b.CheckAllowed(OpCompletion, 1))
	b.RecordUsage(OpCompletion, 1)
	require.NoError(t, b.CheckAllowed(OpCompletion, 1))
	b.RecordUsage(OpCompletion, 1)

	// The third would push past the cap and must be denied.
	err := b.CheckAllowed(OpCompletion, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBudgetExceeded))

	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "daily cost USD", denied.Limit)
}

func TestCheckAllowed_DenialConsumesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyCostUSD = 0.005
	b := NewBudget(cfg, "", logger.Nop())

	require.Error(t, b.CheckAllowed(OpCompletion, 1))

	stats := b.Stats()
	assert.Zero(t, stats.DailyRequests)
	assert.Zero(t, stats.DailyCostUSD)
}

func TestCheckAllowed_RequestsPerMinute(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestsPerMinute = 2
	b := NewBudget(cfg, "", logger.Nop())

	b.RecordUsage(OpEmbedding, 1)
	b.RecordUsage(OpEmbedding, 1)

	err := b.CheckAllowed(OpEmbedding, 1)
	require.Error(t, err)

	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "requests per minute", denied.Limit)
}

func TestWindowPruning(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestsPerHour = 2
	b := NewBudget(cfg, "", logger.Nop())

	clock := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	b.date = b.today()

	b.RecordUsage(OpEmbedding, 1)
	b.RecordUsage(OpEmbedding, 1)
	require.Error(t, b.CheckAllowed(OpEmbedding, 1))

	// Samples older than an hour no longer count against the window.
	clock = clock.Add(61 * time.Minute)
	assert.NoError(t, b.CheckAllowed(OpEmbedding, 1))
}

func TestDailyRollover(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyCostUSD = 0.01
	cfg.CostPerCompletion = 0.01
	b := NewBudget(cfg, "", logger.Nop())

	clock := time.Date(2026, 8, 23, 23, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	b.date = b.today()

	b.RecordUsage(OpCompletion, 1)
	require.Error(t, b.CheckAllowed(OpCompletion, 1))

	// Next day: counters reset lazily on the next check.
	clock = clock.Add(2 * time.Hour)
	assert.NoError(t, b.CheckAllowed(OpCompletion, 1))
	assert.Zero(t, b.Stats().DailyCostUSD)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	cfg := testConfig()

	b := NewBudget(cfg, path, logger.Nop())
	b.RecordUsage(OpCompletion, 1)
	b.RecordUsage(OpEmbedding, 500)

	reloaded := NewBudget(cfg, path, logger.Nop())
	stats := reloaded.Stats()
	assert.Equal(t, 2, stats.DailyRequests)
	assert.InDelta(t, 0.01+500*0.000002, stats.DailyCostUSD, 1e-9)
}

func TestDisabledCeilings(t *testing.T) {
	b := NewBudget(BudgetConfig{}, "", logger.Nop())
	b.RecordUsage(OpCompletion, 1)
	assert.NoError(t, b.CheckAllowed(OpCompletion, 1000))
}
