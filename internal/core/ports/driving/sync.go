package driving

import (
	"context"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// SyncRunner is the invocation contract for the sync pipeline.
type SyncRunner interface {
	// Initialize verifies connectivity to the remote store, the
	// embedding provider and the derived-record store.
	Initialize(ctx context.Context) error

	// RunSyncCycle reconciles the remote listing against tracker state
	// and processes each selected file to completion. A requested stop
	// is honoured between files, never mid-file.
	RunSyncCycle(ctx context.Context) (*domain.CycleResult, error)

	// Stats aggregates store, tracker and budget usage statistics.
	Stats(ctx context.Context) (*domain.SyncStats, error)

	// RequestStop asks the runner to stop after the current file.
	RequestStop()
}
