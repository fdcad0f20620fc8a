// Package chunker provides fixed-size text chunking with overlap and
// boundary-aware cuts.
package chunker

import (
	"strings"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 400

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// boundaries are tried in order when deciding where to end a chunk:
// paragraph break, line break, sentence end, word break.
var boundaries = []string{"\n\n", "\n", ". ", " "}

// minBoundaryFraction keeps boundary cuts from producing tiny chunks:
// a boundary is only taken in the last portion of the window.
const minBoundaryFraction = 0.5

// Splitter splits text into overlapping chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split cuts content into chunks of at most the configured size, each
// starting overlap characters before the previous chunk's end.
// Cuts prefer natural boundaries near the end of the window over hard
// character positions. Empty content produces no chunks.
func (s *Splitter) Split(content string) []string {
	if content == "" {
		return nil
	}

	contentLen := len(content)
	if contentLen <= s.chunkSize {
		return []string{content}
	}

	estimated := (contentLen / (s.chunkSize - s.overlap)) + 1
	chunks := make([]string, 0, estimated)

	start := 0
	for start < contentLen {
		end := start + s.chunkSize
		if end >= contentLen {
			chunks = append(chunks, content[start:])
			break
		}

		end = s.cutAt(content, start, end)
		chunks = append(chunks, content[start:end])

		next := end - s.overlap
		if next <= start {
			// Guard against stalling when a boundary cut lands inside
			// the overlap window.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// cutAt finds the best end position in (start, limit]: the last
// occurrence of the highest-priority boundary in the second half of
// the window, falling back to a hard cut at limit.
func (s *Splitter) cutAt(content string, start, limit int) int {
	window := content[start:limit]
	earliest := int(float64(len(window)) * minBoundaryFraction)

	for _, b := range boundaries {
		if idx := strings.LastIndex(window, b); idx >= earliest {
			return start + idx + len(b)
		}
	}
	return limit
}
