package domain

// Processing statuses reported by the per-file pipeline.
const (
	// StatusSuccess means the full derived-record transaction completed.
	StatusSuccess = "success"

	// StatusSkipped means there was nothing to process (empty content).
	StatusSkipped = "skipped"
)

// ProcessResult summarises one file's trip through the pipeline.
type ProcessResult struct {
	// Status is StatusSuccess or StatusSkipped.
	Status string

	// Chunks is the number of chunks produced by splitting.
	Chunks int

	// VectorsCreated is the number of vector records actually inserted.
	// It can be lower than Chunks when single-item fallback loses items.
	VectorsCreated int

	// ContentLength is the character length of the processed text.
	ContentLength int

	// RowsStored is the number of structured rows persisted.
	RowsStored int

	// SchemaFields is the number of columns for structured content.
	SchemaFields int
}

// CycleResult summarises one synchronisation cycle.
type CycleResult struct {
	// Found is the number of new or updated files the reconciliation
	// selected for processing.
	Found int

	// Processed counts files whose pipeline completed successfully.
	Processed int

	// Failed counts files whose pipeline raised a fatal failure.
	Failed int

	// Stopped reports that a cooperative stop cut the cycle short.
	Stopped bool

	// BudgetExhausted reports that a budget denial ended the cycle
	// before all selected files were processed. Unlike Stopped, the
	// caller may keep polling; the budget frees up as windows slide
	// and the daily counters roll over.
	BudgetExhausted bool
}

// StoreStats describes the derived-record store contents.
type StoreStats struct {
	Documents        int64
	Vectors          int64
	AvgVectorsPerDoc float64
}

// SyncStats aggregates status across the pipeline's collaborators for
// the stats surface.
type SyncStats struct {
	Store        StoreStats
	TrackedFiles int
	DailyCostUSD float64
	DailyCostCap float64
	RequestsUsed int
}
