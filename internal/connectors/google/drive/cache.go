package drive

import (
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// listingCache memoises listing results for a short window so repeated
// cycles over an unchanged folder do not hammer the API. Entries are
// keyed by the full listing parameters; any parameter change misses.
type listingCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	files   []domain.RemoteFile
	expires time.Time
}

func newListingCache(ttl time.Duration) *listingCache {
	return &listingCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(folderID string, modifiedAfter time.Time, recursive bool) string {
	return fmt.Sprintf("%s|%d|%t", folderID, modifiedAfter.UnixNano(), recursive)
}

func (c *listingCache) get(key string) ([]domain.RemoteFile, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.files, true
}

func (c *listingCache) put(key string, files []domain.RemoteFile) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop expired entries opportunistically so the map does not grow
	// without bound across long watch runs.
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{files: files, expires: now.Add(c.ttl)}
}
