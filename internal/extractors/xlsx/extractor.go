// Package xlsx extracts Excel workbooks into structured rows.
package xlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/drivesync-cli/internal/extractors/csvfile"
)

// MaxRows caps how many data rows are extracted across all sheets.
const MaxRows = 100_000

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles XLSX workbooks.
type Extractor struct{}

// New creates a new XLSX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
	}
}

// Extract reads the first sheet's header as the column schema and every
// sheet's data rows against it. Rows past the cap are dropped and the
// result is marked truncated.
func (e *Extractor) Extract(_ context.Context, content []byte, _ domain.RemoteFile) (*domain.ExtractionResult, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var (
		header    []string
		records   [][]string
		truncated bool
	)

	for _, sheet := range wb.GetSheetList() {
		sheetRows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(sheetRows) == 0 {
			continue
		}

		start := 0
		if header == nil {
			header = sheetRows[0]
			start = 1
		} else if len(sheetRows) > 0 {
			// Subsequent sheets repeat a header row; skip it when it
			// matches the schema.
			if equalStrings(sheetRows[0], header) {
				start = 1
			}
		}

		for _, record := range sheetRows[start:] {
			if len(records) >= MaxRows {
				truncated = true
				break
			}
			records = append(records, record)
		}
		if truncated {
			break
		}
	}

	if header == nil {
		return &domain.ExtractionResult{
			Kind:   domain.ExtractionStructured,
			Method: "xlsx",
		}, nil
	}

	rows := make([]domain.Row, 0, len(records))
	for _, record := range records {
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
		Content:   csvfile.RenderText(header, records),
		Method:    "xlsx",
		Rows:      rows,
		Columns:   header,
		RowCount:  len(rows),
		Truncated: truncated,
	}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
