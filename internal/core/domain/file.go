package domain

// RemoteFile is an immutable snapshot of a file listed from the remote
// store. It is produced by the listing client and consumed by value.
type RemoteFile struct {
	// ID is the remote identifier, stable across renames.
	ID string

	// Name is the human-readable display name.
	Name string

	// MIMEType is the declared media type (e.g., "application/pdf").
	MIMEType string

	// ModifiedTime is the remote modification timestamp. It is opaque:
	// change detection compares it for string equality only, never as an
	// ordered instant.
	ModifiedTime string

	// Size is the byte size reported by the remote store.
	Size int64

	// WebViewLink is the browser URL for the file, kept for provenance.
	WebViewLink string

	// ParentID is the containing folder, when known.
	ParentID string
}

// FileMetadata is the single metadata record derived from a file.
// It is replaced in full on every (re)processing of the file.
type FileMetadata struct {
	// FileID keys the record to its source file.
	FileID string

	// Title is the file's display name at processing time.
	Title string

	// URL is the source link for provenance.
	URL string

	// Schema lists column names for structured content, nil otherwise.
	Schema []string
}
