package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// mockRemote serves canned listings and content.
type mockRemote struct {
	files       []domain.RemoteFile
	listErr     error
	content     map[string][]byte
	mime        string
	downloadErr error
}

func (m *mockRemote) ListFiles(_ context.Context, _ string, _ time.Time, _ bool) ([]domain.RemoteFile, error) {
	return m.files, m.listErr
}

func (m *mockRemote) Download(_ context.Context, file domain.RemoteFile) ([]byte, string, error) {
	if m.downloadErr != nil {
		return nil, "", m.downloadErr
	}
	mime := m.mime
	if mime == "" {
		mime = "text/plain"
	}
	return m.content[file.ID], mime, nil
}

// mockExtractor returns a fixed result per file ID.
type mockExtractor struct {
	results map[string]*domain.ExtractionResult
}

func (m *mockExtractor) Extract(_ context.Context, content []byte, file domain.RemoteFile) *domain.ExtractionResult {
	if r, ok := m.results[file.ID]; ok {
		return r
	}
	return &domain.ExtractionResult{
		Kind:    domain.ExtractionText,
		Content: string(content),
		Method:  "plaintext",
	}
}

// mockEmbedder counts calls and can fail batches to force fallback.
type mockEmbedder struct {
	mu          sync.Mutex
	batchCalls  int
	singleCalls int
	failBatch   bool
	failTexts   map[string]bool
	pingErr     error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCalls++
	if m.failTexts[text] {
		return nil, errors.New("embed failed")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.failBatch {
		return nil, errors.New("batch failed")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return 2 }
func (m *mockEmbedder) ModelName() string          { return "mock-model" }
func (m *mockEmbedder) Ping(context.Context) error { return m.pingErr }
func (m *mockEmbedder) Close() error               { return nil }

// mockStore records every write in order.
type mockStore struct {
	mu        sync.Mutex
	calls     []string
	metadata  map[string]domain.FileMetadata
	rows      map[string][]domain.Row
	vectors   map[string][]domain.Chunk
	purgeErr  error
	metaErr   error
	insertErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		metadata: make(map[string]domain.FileMetadata),
		rows:     make(map[string][]domain.Row),
		vectors:  make(map[string][]domain.Chunk),
	}
}

func (m *mockStore) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *mockStore) UpsertMetadata(_ context.Context, meta domain.FileMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("metadata")
	if m.metaErr != nil {
		return m.metaErr
	}
	m.metadata[meta.FileID] = meta
	return nil
}

func (m *mockStore) InsertRows(_ context.Context, fileID string, rows []domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("rows")
	m.rows[fileID] = append(m.rows[fileID], rows...)
	return nil
}

func (m *mockStore) InsertVectors(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("vectors")
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, c := range chunks {
		m.vectors[c.FileID] = append(m.vectors[c.FileID], c)
	}
	return nil
}

func (m *mockStore) DeleteDerived(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("purge")
	if m.purgeErr != nil {
		return m.purgeErr
	}
	delete(m.rows, fileID)
	delete(m.vectors, fileID)
	return nil
}

func (m *mockStore) SearchSimilar(context.Context, []float32, int) ([]domain.SearchHit, error) {
	return nil, nil
}

func (m *mockStore) Stats(context.Context) (*domain.StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.StoreStats{
		Documents: int64(len(m.metadata)),
	}, nil
}

func (m *mockStore) Close() error { return nil }
