package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := domain.FileMetadata{
		FileID: "f1",
		Title:  "Quarterly Numbers",
		URL:    "https://example.com/f1",
		Schema: []string{"name", "amount"},
	}
	require.NoError(t, s.UpsertMetadata(ctx, meta))

	got, err := s.GetMetadata(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, meta, *got)

	// Upsert replaces in place.
	meta.Title = "Quarterly Numbers v2"
	meta.Schema = nil
	require.NoError(t, s.UpsertMetadata(ctx, meta))

	got, err = s.GetMetadata(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Numbers v2", got.Title)
	assert.Nil(t, got.Schema)
}

func TestGetMetadata_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetMetadata(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertRowsAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []domain.Row{
		{"name": "alice", "amount": "10"},
		{"name": "bob", "amount": "20"},
	}
	require.NoError(t, s.InsertRows(ctx, "f1", rows))
	require.NoError(t, s.InsertRows(ctx, "f2", rows[:1]))

	require.NoError(t, s.DeleteDerived(ctx, "f1"))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM document_rows WHERE file_id = 'f1'").Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM document_rows WHERE file_id = 'f2'").Scan(&count))
	assert.Equal(t, 1, count, "other files' rows survive the purge")
}

func TestInsertVectorsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{
			ID: "c1", FileID: "f1", Content: "chunk one", Position: 0,
			Embedding: []float32{1, 0, 0},
			Metadata:  map[string]any{"file_title": "Doc"},
		},
		{
			ID: "c2", FileID: "f1", Content: "chunk two", Position: 1,
			Embedding: []float32{0, 1, 0},
		},
	}
	require.NoError(t, s.InsertVectors(ctx, chunks))

	hits, err := s.SearchSimilar(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "chunk one", hits[0].Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "Doc", hits[0].Metadata["file_title"])
	assert.InDelta(t, 0.0, hits[1].Score, 1e-6)
}

func TestSearchSimilar_TopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var chunks []domain.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, domain.Chunk{
			ID:        string(rune('a' + i)),
			FileID:    "f1",
			Content:   "c",
			Embedding: []float32{float32(i), 1},
		})
	}
	require.NoError(t, s.InsertVectors(ctx, chunks))

	hits, err := s.SearchSimilar(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearchSimilar_InvalidInput(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SearchSimilar(context.Background(), nil, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchSimilar_SkipsMismatchedDimensions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertVectors(ctx, []domain.Chunk{
		{ID: "c1", FileID: "f1", Content: "short", Embedding: []float32{1, 2}},
		{ID: "c2", FileID: "f1", Content: "match", Embedding: []float32{1, 2, 3}},
	}))

	hits, err := s.SearchSimilar(ctx, []float32{1, 2, 3}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "match", hits[0].Content)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMetadata(ctx, domain.FileMetadata{FileID: "f1", Title: "A"}))
	require.NoError(t, s.UpsertMetadata(ctx, domain.FileMetadata{FileID: "f2", Title: "B"}))
	require.NoError(t, s.InsertVectors(ctx, []domain.Chunk{
		{ID: "c1", FileID: "f1", Content: "x", Embedding: []float32{1}},
		{ID: "c2", FileID: "f1", Content: "y", Embedding: []float32{1}},
		{ID: "c3", FileID: "f2", Content: "z", Embedding: []float32{1}},
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Documents)
	assert.Equal(t, int64(3), stats.Vectors)
	assert.InDelta(t, 1.5, stats.AvgVectorsPerDoc, 1e-9)
}

func TestFloat32BlobRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 3.75, 0}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening runs migrate again; already-applied versions are skipped.
	s2, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}
