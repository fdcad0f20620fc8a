package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driving"
	"github.com/custodia-labs/drivesync-cli/internal/limiter"
	"github.com/custodia-labs/drivesync-cli/internal/tracker"
)

// Ensure SyncService implements the interface.
var _ driving.SyncRunner = (*SyncService)(nil)

// SyncService reconciles the remote folder against tracker state and
// pushes each selected file through the pipeline. It is the single
// writer of tracker state: a file is marked processed only after its
// pipeline run fully succeeded.
type SyncService struct {
	remote   driven.RemoteClient
	embedder driven.EmbeddingService
	store    driven.DerivedStore
	pipeline *Pipeline
	tracker  *tracker.Tracker
	budget   *limiter.Budget

	folderID  string
	recursive bool

	stop atomic.Bool
	log  zerolog.Logger
}

// SyncConfig wires the sync service's collaborators.
type SyncConfig struct {
	Remote    driven.RemoteClient
	Embedder  driven.EmbeddingService
	Store     driven.DerivedStore
	Pipeline  *Pipeline
	Tracker   *tracker.Tracker
	Budget    *limiter.Budget
	FolderID  string
	Recursive bool
	Log       zerolog.Logger
}

// NewSyncService creates a sync service.
func NewSyncService(cfg SyncConfig) *SyncService {
	return &SyncService{
		remote:    cfg.Remote,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		pipeline:  cfg.Pipeline,
		tracker:   cfg.Tracker,
		budget:    cfg.Budget,
		folderID:  cfg.FolderID,
		recursive: cfg.Recursive,
		log:       cfg.Log,
	}
}

// Initialize verifies the embedding provider and the derived store are
// reachable before the first cycle runs.
func (s *SyncService) Initialize(ctx context.Context) error {
	if err := s.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service unavailable: %w", err)
	}
	if _, err := s.store.Stats(ctx); err != nil {
		return fmt.Errorf("derived store unavailable: %w", err)
	}
	s.log.Info().Str("model", s.embedder.ModelName()).Int("dimensions", s.embedder.Dimensions()).Msg("initialised")
	return nil
}

// RunSyncCycle lists the folder, reconciles against tracker state and
// processes each selected file. Failures are per-file: one bad file is
// counted and skipped, the cycle continues. A budget denial or a
// requested stop ends the cycle between files.
func (s *SyncService) RunSyncCycle(ctx context.Context) (*domain.CycleResult, error) {
	files, err := s.remote.ListFiles(ctx, s.folderID, time.Time{}, s.recursive)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	selected := s.tracker.Reconcile(files)
	result := &domain.CycleResult{Found: len(selected)}

	s.log.Info().Int("listed", len(files)).Int("selected", len(selected)).Msg("cycle reconciled")

	for _, file := range selected {
		if s.stop.Load() {
			s.log.Info().Msg("stop requested, ending cycle")
			result.Stopped = true
			break
		}
		if ctx.Err() != nil {
			result.Stopped = true
			break
		}

		_, err := s.pipeline.ProcessFile(ctx, file)
		if err != nil {
			if errors.Is(err, domain.ErrBudgetExceeded) {
				s.log.Warn().Err(err).Msg("budget exhausted, ending cycle")
				result.BudgetExhausted = true
				break
			}
			s.log.Error().Err(err).Str("file", file.ID).Str("name", file.Name).Msg("file processing failed")
			result.Failed++
			continue
		}

		if err := s.tracker.MarkProcessed(file.ID, file.ModifiedTime); err != nil {
			s.log.Error().Err(err).Str("file", file.ID).Msg("failed to persist tracker state")
		}
		result.Processed++
	}

	s.log.Info().
		Int("found", result.Found).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Bool("stopped", result.Stopped).
		Bool("budget_exhausted", result.BudgetExhausted).
		Msg("cycle complete")
	return result, nil
}

// Reprocess forgets a file's tracker state so the next cycle selects
// it again regardless of its modification timestamp.
func (s *SyncService) Reprocess(fileID string) error {
	return s.tracker.Forget(fileID)
}

// ReprocessAll forgets all tracked state so the next cycle reprocesses
// every file in the folder.
func (s *SyncService) ReprocessAll() error {
	return s.tracker.ForgetAll()
}

// Stats aggregates store, tracker and budget usage statistics.
func (s *SyncService) Stats(ctx context.Context) (*domain.SyncStats, error) {
	storeStats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("store stats: %w", err)
	}

	stats := &domain.SyncStats{
		Store:        *storeStats,
		TrackedFiles: s.tracker.Stats().Processed,
	}
	if s.budget != nil {
		usage := s.budget.Stats()
		stats.DailyCostUSD = usage.DailyCostUSD
		stats.DailyCostCap = usage.MaxDailyCostUSD
		stats.RequestsUsed = usage.DailyRequests
	}
	return stats, nil
}

// RequestStop asks the runner to stop after the current file. Safe to
// call from a signal handler goroutine.
func (s *SyncService) RequestStop() {
	s.stop.Store(true)
}
