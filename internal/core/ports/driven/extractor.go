package driven

import (
	"context"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// Extractor is a format-specific extraction routine. Each handles a fixed
// set of media types and enforces its own resource ceiling, truncating
// rather than failing when the ceiling is exceeded.
type Extractor interface {
	// SupportedMIMETypes returns the media types this routine handles.
	SupportedMIMETypes() []string

	// Extract parses file bytes into content. Errors are returned, not
	// embedded; the registry converts them to error results.
	Extract(ctx context.Context, content []byte, file domain.RemoteFile) (*domain.ExtractionResult, error)
}

// ContentExtractor dispatches extraction by media type. It never returns
// an error: all failures, including panics in format routines, become
// ExtractionError results so one bad file cannot abort a batch.
type ContentExtractor interface {
	Extract(ctx context.Context, content []byte, file domain.RemoteFile) *domain.ExtractionResult
}
