// Package csvfile extracts CSV content into structured rows keyed by
// header, plus a flat text rendering for chunking.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
)

// MaxRows caps how many data rows are extracted. Files with more rows
// are truncated, not rejected.
const MaxRows = 100_000

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles CSV files, including Google Sheets exports.
type Extractor struct{}

// New creates a new CSV extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/csv"}
}

// Extract parses the CSV. The first record is the header and becomes
// the column schema; each following record becomes a row map. Rows with
// a different field count than the header are tolerated.
func (e *Extractor) Extract(_ context.Context, content []byte, _ domain.RemoteFile) (*domain.ExtractionResult, error) {
	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return &domain.ExtractionResult{
			Kind:   domain.ExtractionStructured,
			Method: "csv",
		}, nil
	}

	header := records[0]
	data := records[1:]

	truncated := false
	if len(data) > MaxRows {
		data = data[:MaxRows]
		truncated = true
	}

	rows := make([]domain.Row, 0, len(data))
	for _, record := range data {
		row := make(domain.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				// Missing cells are null, not empty strings.
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}

	return &domain.ExtractionResult{
		Kind:      domain.ExtractionStructured,
		Content:   RenderText(header, data),
		Method:    "csv",
		Rows:      rows,
		Columns:   header,
		RowCount:  len(rows),
		Truncated: truncated,
	}, nil
}

// RenderText flattens tabular data into one line per row so the text
// can be chunked and embedded alongside unstructured documents.
func RenderText(header []string, records [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ", "))
	for _, record := range records {
		b.WriteString("\n")
		b.WriteString(strings.Join(record, ", "))
	}
	return b.String()
}
