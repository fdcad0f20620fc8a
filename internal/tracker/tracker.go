// Package tracker remembers which remote files have been processed and
// at which revision, so that sync cycles only touch new or changed
// files. State survives restarts through two JSON files: one mapping
// file ID to the last processed modification timestamp, one recording
// every file ID ever observed.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

const (
	processedFilename = "processed_files.json"
	knownFilename     = "known_files.json"
)

// Tracker is the change detection state. Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	// processed maps file ID to the modification timestamp recorded at
	// the last successful processing. Timestamps are compared as opaque
	// strings; any difference counts as an update.
	processed map[string]string

	// known holds every file ID ever seen, processed or not. A file
	// absent from this set is reported as newly seen exactly once.
	known map[string]struct{}

	dir string
	log zerolog.Logger
}

// Stats summarises tracker state.
type Stats struct {
	Processed int `json:"processed"`
	Known     int `json:"known"`
}

// New loads tracker state from dir, creating it if needed. Corrupt or
// missing state files degrade to empty state with a warning; they are
// rewritten on the next MarkProcessed.
func New(dir string, log zerolog.Logger) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tracker dir: %w", err)
	}

	t := &Tracker{
		processed: make(map[string]string),
		known:     make(map[string]struct{}),
		dir:       dir,
		log:       log,
	}

	if err := loadJSON(filepath.Join(dir, processedFilename), &t.processed); err != nil {
		log.Warn().Err(err).Msg("processed state unreadable, starting empty")
		t.processed = make(map[string]string)
	}

	var ids []string
	if err := loadJSON(filepath.Join(dir, knownFilename), &ids); err != nil {
		log.Warn().Err(err).Msg("known-files state unreadable, starting empty")
		ids = nil
	}
	for _, id := range ids {
		t.known[id] = struct{}{}
	}

	return t, nil
}

// IsNew reports whether the file has never been successfully processed.
func (t *Tracker) IsNew(fileID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.processed[fileID]
	return !ok
}

// IsUpdated reports whether the file was processed before at a
// different modification timestamp. A file never processed is not
// "updated"; it is new.
func (t *Tracker) IsUpdated(fileID, modifiedTime string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.processed[fileID]
	return ok && last != modifiedTime
}

// Reconcile filters a remote listing down to the files that need
// processing: never processed, processed at a different revision, or
// never observed before. Files newly observed are added to the known
// set as a side effect, so a file skipped this cycle will not be
// re-selected on that ground alone next cycle.
func (t *Tracker) Reconcile(files []domain.RemoteFile) []domain.RemoteFile {
	t.mu.Lock()
	defer t.mu.Unlock()

	var selected []domain.RemoteFile
	knownDirty := false

	for _, f := range files {
		last, processed := t.processed[f.ID]
		_, seen := t.known[f.ID]

		needs := !processed || last != f.ModifiedTime || !seen
		if needs {
			selected = append(selected, f)
		}

		if !seen {
			t.known[f.ID] = struct{}{}
			knownDirty = true
		}
	}

	if knownDirty {
		if err := t.saveKnownLocked(); err != nil {
			t.log.Warn().Err(err).Msg("persist known-files state failed")
		}
	}

	return selected
}

// MarkProcessed records a successful processing of the file at the
// given modification timestamp and persists immediately. It is only
// called after the whole per-file pipeline succeeded; a failed file
// stays eligible for the next cycle.
func (t *Tracker) MarkProcessed(fileID, modifiedTime string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed[fileID] = modifiedTime
	t.known[fileID] = struct{}{}

	if err := saveJSON(filepath.Join(t.dir, processedFilename), t.processed); err != nil {
		return fmt.Errorf("persist processed state: %w", err)
	}
	if err := t.saveKnownLocked(); err != nil {
		return fmt.Errorf("persist known-files state: %w", err)
	}
	return nil
}

// Forget removes a file from processed state so the next cycle
// re-selects it. The known set is left intact.
func (t *Tracker) Forget(fileID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.processed[fileID]; !ok {
		return nil
	}
	delete(t.processed, fileID)
	if err := saveJSON(filepath.Join(t.dir, processedFilename), t.processed); err != nil {
		return fmt.Errorf("persist processed state: %w", err)
	}
	return nil
}

// ForgetAll clears all processed state so the next cycle re-selects
// every file. The known set is left intact.
func (t *Tracker) ForgetAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed = make(map[string]string)
	if err := saveJSON(filepath.Join(t.dir, processedFilename), t.processed); err != nil {
		return fmt.Errorf("persist processed state: %w", err)
	}
	return nil
}

// Stats returns current tracker counts.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{Processed: len(t.processed), Known: len(t.known)}
}

func (t *Tracker) saveKnownLocked() error {
	ids := make([]string, 0, len(t.known))
	for id := range t.known {
		ids = append(ids, id)
	}
	return saveJSON(filepath.Join(t.dir, knownFilename), ids)
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// saveJSON writes atomically via a temp file rename so a crash mid-write
// never leaves a truncated state file.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
