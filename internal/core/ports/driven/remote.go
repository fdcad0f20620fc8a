package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// RemoteClient lists and fetches files from the monitored remote store.
//
// Implementations apply request pacing and transient-failure retry before
// every network call; exhausted retries surface to the caller.
type RemoteClient interface {
	// ListFiles returns all non-folder entries under folderID. When
	// recursive, subfolders are expanded and flattened into the same
	// sequence. A zero modifiedAfter means no time filter.
	ListFiles(ctx context.Context, folderID string, modifiedAfter time.Time, recursive bool) ([]domain.RemoteFile, error)

	// Download fetches a file's bytes. Remote-native editable formats
	// are exported to a fixed target media type instead of the native
	// binary; all other types are downloaded raw. The returned string is
	// the effective media type of the bytes.
	Download(ctx context.Context, file domain.RemoteFile) ([]byte, string, error)
}
