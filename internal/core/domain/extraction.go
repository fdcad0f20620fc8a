package domain

// ExtractionKind discriminates the variants of an ExtractionResult.
type ExtractionKind int

const (
	// ExtractionText is plain text content.
	ExtractionText ExtractionKind = iota

	// ExtractionStructured is tabular content with rows and a schema,
	// plus a textual summary in Content.
	ExtractionStructured

	// ExtractionError is a failed extraction. Err carries the reason.
	ExtractionError
)

// Row is a single record of a structured extraction. Values are already
// normalised for JSON serialisation: missing values are nil, numbers are
// plain float64/int64, timestamps are ISO-8601 strings.
type Row map[string]any

// ExtractionResult is the outcome of extracting content from file bytes.
// It is created once per extraction and never mutated; ownership passes
// to the pipeline that requested it.
type ExtractionResult struct {
	// Kind selects the active variant.
	Kind ExtractionKind

	// Content is the extracted text, or the textual summary for
	// structured content. Empty for errors.
	Content string

	// Method records how the content was obtained (e.g., "pdftotext",
	// "excelize"), including a truncation marker when a resource
	// ceiling was hit.
	Method string

	// Rows holds the structured records, in source order.
	Rows []Row

	// Columns is the ordered schema for structured content.
	Columns []string

	// RowCount is the number of rows extracted (after truncation).
	RowCount int

	// Truncated reports that a page or row ceiling was exceeded and the
	// result was cut rather than failed.
	Truncated bool

	// Err is the failure message when Kind is ExtractionError.
	Err string
}

// IsError reports whether the extraction failed.
func (r *ExtractionResult) IsError() bool {
	return r.Kind == ExtractionError
}

// ErrorResult builds an ExtractionResult for a failed extraction.
func ErrorResult(msg string) *ExtractionResult {
	return &ExtractionResult{Kind: ExtractionError, Method: "none", Err: msg}
}
