package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
)

// MaxFileSize is the largest file the registry will extract (50 MiB).
// Oversized files produce an error-kind result, never a pipeline error.
const MaxFileSize = 50 * 1024 * 1024

// extensionMIME maps file extensions to MIME types for files whose
// reported type is missing or generic and whose content sniff fails.
var extensionMIME = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".xml":  "application/xml",
	".html": "text/html",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Ensure Registry implements the interface.
var _ driven.ContentExtractor = (*Registry)(nil)

// Registry routes content to the extractor registered for its MIME
// type. Extract never returns an error; every failure mode is folded
// into an error-kind result so one bad file cannot stop a cycle.
type Registry struct {
	byMIME      map[string]driven.Extractor
	maxFileSize int64
	log         zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxFileSize overrides the size ceiling.
func WithMaxFileSize(n int64) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxFileSize = n
		}
	}
}

// NewRegistry builds a registry over the given extractors. Later
// extractors win MIME type conflicts.
func NewRegistry(log zerolog.Logger, extractors []driven.Extractor, opts ...Option) *Registry {
	r := &Registry{
		byMIME:      make(map[string]driven.Extractor),
		maxFileSize: MaxFileSize,
		log:         log,
	}
	for _, e := range extractors {
		for _, mime := range e.SupportedMIMETypes() {
			r.byMIME[mime] = e
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supported reports whether a MIME type has a registered extractor.
func (r *Registry) Supported(mimeType string) bool {
	_, ok := r.byMIME[normaliseMIME(mimeType)]
	return ok
}

// Extract dispatches to the extractor for the file's MIME type. When
// the reported type has no extractor, the content is sniffed and the
// file extension consulted before giving up.
func (r *Registry) Extract(ctx context.Context, content []byte, file domain.RemoteFile) (result *domain.ExtractionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("file", file.ID).Any("panic", rec).Msg("extractor panicked")
			result = domain.ErrorResult(fmt.Sprintf("extraction panicked: %v", rec))
		}
	}()

	if int64(len(content)) > r.maxFileSize {
		return domain.ErrorResult(fmt.Sprintf("%v: %d bytes exceeds limit of %d", domain.ErrFileTooLarge, len(content), r.maxFileSize))
	}

	ext, mime, ok := r.resolve(content, file)
	if !ok {
		return domain.ErrorResult(fmt.Sprintf("%v: %s", domain.ErrUnsupportedType, file.MIMEType))
	}

	res, err := ext.Extract(ctx, content, file)
	if err != nil {
		r.log.Warn().Err(err).Str("file", file.ID).Str("mime", mime).Msg("extraction failed")
		return domain.ErrorResult(fmt.Sprintf("extraction failed: %v", err))
	}
	return res
}

// resolve finds the extractor for a file, trying the reported MIME
// type, then a content sniff, then the filename extension.
func (r *Registry) resolve(content []byte, file domain.RemoteFile) (driven.Extractor, string, bool) {
	if mime := normaliseMIME(file.MIMEType); mime != "" {
		if e, ok := r.byMIME[mime]; ok {
			return e, mime, true
		}
	}

	if sniffed := normaliseMIME(mimetype.Detect(content).String()); sniffed != "" {
		if e, ok := r.byMIME[sniffed]; ok {
			return e, sniffed, true
		}
	}

	if mime, ok := extensionMIME[strings.ToLower(filepath.Ext(file.Name))]; ok {
		if e, ok := r.byMIME[mime]; ok {
			return e, mime, true
		}
	}

	return nil, "", false
}

// normaliseMIME strips parameters like "; charset=utf-8".
func normaliseMIME(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(strings.ToLower(mime))
}
