package driven

import (
	"context"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// DerivedStore persists everything derived from a source file: one
// metadata record, zero or more structured rows, zero or more vector
// chunks. The pipeline's consistency invariant is purge-then-recreate:
// DeleteDerived runs before every (re)processing of a file.
type DerivedStore interface {
	// UpsertMetadata writes or replaces the file's metadata record.
	UpsertMetadata(ctx context.Context, meta domain.FileMetadata) error

	// InsertRows persists structured rows tied to the file identifier.
	InsertRows(ctx context.Context, fileID string, rows []domain.Row) error

	// InsertVectors persists chunk records with their embeddings.
	InsertVectors(ctx context.Context, chunks []domain.Chunk) error

	// DeleteDerived removes all rows and vectors for a file. The
	// metadata record is left to be replaced by the following upsert.
	DeleteDerived(ctx context.Context, fileID string) error

	// SearchSimilar returns the k nearest chunks to the query embedding
	// by cosine similarity.
	SearchSimilar(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error)

	// Stats reports document and vector counts.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// Close releases the underlying connection.
	Close() error
}
