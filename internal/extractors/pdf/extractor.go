// Package pdf extracts text from PDF files using the pdftotext tool
// from poppler-utils, with a page-count ceiling enforced up front.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
)

// MaxPages caps the pages handed to pdftotext. Larger documents are
// extracted up to the cap and marked truncated.
const MaxPages = 1000

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command. Abstracted for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct {
	runner CommandRunner
}

// New creates a PDF extractor using the system pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates a PDF extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// CheckAvailable verifies pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions explains how to install the PDF tool.
func InstallInstructions() string {
	return "pdftotext is required for PDF extraction.\n" +
		"  macOS:  brew install poppler\n" +
		"  Debian: apt install poppler-utils"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract counts pages, then runs pdftotext over at most MaxPages of
// the document. pdftotext wants a file path, so the content goes
// through a temp file.
func (e *Extractor) Extract(ctx context.Context, content []byte, _ domain.RemoteFile) (*domain.ExtractionResult, error) {
	if err := CheckAvailable(); err != nil {
		return nil, err
	}

	pages, err := api.PageCount(bytes.NewReader(content), nil)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}

	truncated := pages > MaxPages
	lastPage := pages
	if truncated {
		lastPage = MaxPages
	}

	tmpDir, err := os.MkdirTemp("", "drivesync-pdf-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	// "-" sends the text to stdout.
	out, err := e.runner.Run(ctx, "pdftotext",
		"-f", "1",
		"-l", fmt.Sprintf("%d", lastPage),
		"-layout", src, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	return &domain.ExtractionResult{
		Kind:      domain.ExtractionText,
		Content:   string(bytes.TrimSpace(out)),
		Method:    "pdf",
		Truncated: truncated,
	}, nil
}
