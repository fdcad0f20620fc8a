package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/custodia-labs/drivesync-cli/internal/chunker"
	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/drivesync-cli/internal/limiter"
)

// DefaultBatchSize is the number of chunks embedded per API request.
const DefaultBatchSize = 100

// Pipeline turns one remote file into derived records: metadata,
// structured rows, and embedded vector chunks. Each run starts by
// purging the file's previous derived records, so a rerun is a clean
// replace, never an accumulation.
type Pipeline struct {
	remote    driven.RemoteClient
	extractor driven.ContentExtractor
	embedder  driven.EmbeddingService
	store     driven.DerivedStore
	splitter  *chunker.Splitter
	budget    *limiter.Budget
	pacer     *limiter.Pacer
	batchSize int
	log       zerolog.Logger
}

// PipelineConfig wires the pipeline's collaborators.
type PipelineConfig struct {
	Remote    driven.RemoteClient
	Extractor driven.ContentExtractor
	Embedder  driven.EmbeddingService
	Store     driven.DerivedStore
	Splitter  *chunker.Splitter
	Budget    *limiter.Budget
	Pacer     *limiter.Pacer
	BatchSize int
	Log       zerolog.Logger
}

// NewPipeline creates a pipeline from its collaborators.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Splitter == nil {
		cfg.Splitter = chunker.New()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Pacer == nil {
		cfg.Pacer = limiter.NewPacer(0)
	}
	return &Pipeline{
		remote:    cfg.Remote,
		extractor: cfg.Extractor,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		splitter:  cfg.Splitter,
		budget:    cfg.Budget,
		pacer:     cfg.Pacer,
		batchSize: cfg.BatchSize,
		log:       cfg.Log,
	}
}

// ProcessFile runs the full per-file transaction. A returned error
// means the file's derived state may be partial and the file must stay
// eligible for reprocessing; the caller only marks the file processed
// on a nil error.
func (p *Pipeline) ProcessFile(ctx context.Context, file domain.RemoteFile) (*domain.ProcessResult, error) {
	log := p.log.With().Str("file", file.ID).Str("name", file.Name).Logger()

	content, effectiveMIME, err := p.remote.Download(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	// The extractor dispatches on the effective type: exports already
	// converted Google-native files to text or CSV.
	file.MIMEType = effectiveMIME

	res := p.extractor.Extract(ctx, content, file)
	if res.IsError() {
		return nil, fmt.Errorf("extract: %s", res.Err)
	}

	// Purge is best-effort: a failed purge still proceeds, the inserts
	// below replace what matters and the next rerun purges again.
	if err := p.store.DeleteDerived(ctx, file.ID); err != nil {
		log.Warn().Err(err).Msg("purge of previous derived records failed")
	}

	meta := domain.FileMetadata{
		FileID: file.ID,
		Title:  file.Name,
		URL:    file.WebViewLink,
	}
	if res.Kind == domain.ExtractionStructured {
		meta.Schema = res.Columns
	}
	if err := p.store.UpsertMetadata(ctx, meta); err != nil {
		return nil, fmt.Errorf("upsert metadata: %w", err)
	}

	result := &domain.ProcessResult{
		Status:        domain.StatusSuccess,
		ContentLength: len(res.Content),
		SchemaFields:  len(res.Columns),
	}

	if len(res.Rows) > 0 {
		if err := p.store.InsertRows(ctx, file.ID, res.Rows); err != nil {
			return nil, fmt.Errorf("insert rows: %w", err)
		}
		result.RowsStored = len(res.Rows)
	}

	texts := p.splitter.Split(res.Content)
	result.Chunks = len(texts)
	if len(texts) == 0 {
		if result.RowsStored == 0 {
			result.Status = domain.StatusSkipped
		}
		log.Info().Int("rows", result.RowsStored).Msg("no text to embed")
		return result, nil
	}

	chunks, err := p.embedChunks(ctx, file, res.Method, texts)
	if err != nil {
		return nil, err
	}

	if err := p.store.InsertVectors(ctx, chunks); err != nil {
		return nil, fmt.Errorf("insert vectors: %w", err)
	}
	result.VectorsCreated = len(chunks)

	log.Info().
		Int("chunks", result.Chunks).
		Int("vectors", result.VectorsCreated).
		Int("rows", result.RowsStored).
		Msg("file processed")
	return result, nil
}

// embedChunks embeds the chunk texts in batches and assembles the
// vector records. When a whole batch fails, each item is retried alone
// so one poisoned text cannot sink its batchmates.
func (p *Pipeline) embedChunks(ctx context.Context, file domain.RemoteFile, method string, texts []string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch := texts[start:end]

		if p.budget != nil {
			if err := p.budget.CheckAllowed(limiter.OpEmbedding, len(batch)); err != nil {
				return nil, err
			}
		}

		tokens := estimateTokens(batch)
		if err := p.pacer.WaitTokens(ctx, tokens); err != nil {
			return nil, err
		}

		p.log.Debug().
			Int("batch", len(batch)).
			Int("estimated_tokens", tokens).
			Msg("embedding batch")

		embeddings, err := p.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			p.log.Warn().Err(err).Int("batch", len(batch)).Msg("batch embedding failed, retrying items individually")
			embeddings = p.embedSingly(ctx, batch)
		} else if p.budget != nil {
			p.budget.RecordUsage(limiter.OpEmbedding, len(batch))
		}

		for i, embedding := range embeddings {
			if embedding == nil {
				continue
			}
			position := start + i
			chunks = append(chunks, domain.Chunk{
				ID:        uuid.New().String(),
				FileID:    file.ID,
				Content:   batch[i],
				Position:  position,
				Embedding: embedding,
				Metadata: map[string]any{
					"file_id":           file.ID,
					"file_title":        file.Name,
					"file_url":          file.WebViewLink,
					"chunk_index":       position,
					"total_chunks":      len(texts),
					"extraction_method": method,
				},
			})
		}
	}

	return chunks, nil
}

// embedSingly embeds each text on its own. Failed items come back nil
// and are dropped by the caller.
func (p *Pipeline) embedSingly(ctx context.Context, texts []string) [][]float32 {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if p.budget != nil {
			if err := p.budget.CheckAllowed(limiter.OpEmbedding, 1); err != nil {
				p.log.Warn().Err(err).Msg("budget denied during single-item fallback")
				break
			}
		}
		if err := p.pacer.WaitTokens(ctx, len(text)/4); err != nil {
			break
		}

		embedding, err := p.embedder.Embed(ctx, text)
		if err != nil {
			p.log.Warn().Err(err).Int("index", i).Msg("single-item embedding failed, dropping chunk")
			continue
		}
		embeddings[i] = embedding
		if p.budget != nil {
			p.budget.RecordUsage(limiter.OpEmbedding, 1)
		}
	}
	return embeddings
}

// estimateTokens approximates token usage as one token per four
// characters.
func estimateTokens(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total / 4
}
