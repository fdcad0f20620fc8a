package domain

// Chunk is a bounded text segment with its embedding, the unit stored in
// the vector table. Metadata carries enough provenance to recover the
// source file from a vector record alone.
type Chunk struct {
	// ID is the unique identifier for the chunk record.
	ID string

	// FileID links the chunk to its source file.
	FileID string

	// Content is the chunk text.
	Content string

	// Position is the ordinal index within the file's chunk sequence.
	Position int

	// Embedding is the vector representation.
	Embedding []float32

	// Metadata contains provenance key-value pairs: file_id, file_title,
	// file_url, chunk_index, total_chunks, extraction_method.
	Metadata map[string]any
}

// SearchHit is a similarity search result from the vector table.
type SearchHit struct {
	// Content is the matched chunk text.
	Content string

	// Metadata is the chunk's provenance blob.
	Metadata map[string]any

	// Score is the cosine similarity to the query vector.
	Score float64
}
