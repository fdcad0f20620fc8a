// Package plaintext extracts text-like content as-is.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text and text-adjacent formats.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/html",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Extract returns the content as text.
func (e *Extractor) Extract(_ context.Context, content []byte, _ domain.RemoteFile) (*domain.ExtractionResult, error) {
	return &domain.ExtractionResult{
		Kind:    domain.ExtractionText,
		Content: strings.TrimSpace(string(content)),
		Method:  "plaintext",
	}, nil
}
