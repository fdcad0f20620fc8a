package drive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

func TestListingCache_HitWithinTTL(t *testing.T) {
	c := newListingCache(time.Minute)
	key := cacheKey("folder", time.Time{}, true)

	files := []domain.RemoteFile{{ID: "f1"}}
	c.put(key, files)

	got, ok := c.get(key)
	assert.True(t, ok)
	assert.Equal(t, files, got)
}

func TestListingCache_KeyIncludesAllParameters(t *testing.T) {
	c := newListingCache(time.Minute)
	after := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

	c.put(cacheKey("folder", after, true), []domain.RemoteFile{{ID: "f1"}})

	_, ok := c.get(cacheKey("folder", after, false))
	assert.False(t, ok, "recursive flag must be part of the key")

	_, ok = c.get(cacheKey("folder", after.Add(time.Second), true))
	assert.False(t, ok, "modifiedAfter must be part of the key")

	_, ok = c.get(cacheKey("other", after, true))
	assert.False(t, ok, "folder must be part of the key")
}

func TestListingCache_Expiry(t *testing.T) {
	c := newListingCache(10 * time.Millisecond)
	key := cacheKey("folder", time.Time{}, false)
	c.put(key, []domain.RemoteFile{{ID: "f1"}})

	time.Sleep(20 * time.Millisecond)

	_, ok := c.get(key)
	assert.False(t, ok)
}

func TestListingCache_ZeroTTLDisabled(t *testing.T) {
	c := newListingCache(0)
	key := cacheKey("folder", time.Time{}, false)
	c.put(key, []domain.RemoteFile{{ID: "f1"}})

	_, ok := c.get(key)
	assert.False(t, ok)
}

func TestListingCache_EmptyResultIsCached(t *testing.T) {
	c := newListingCache(time.Minute)
	key := cacheKey("folder", time.Time{}, false)
	c.put(key, nil)

	got, ok := c.get(key)
	assert.True(t, ok)
	assert.Empty(t, got)
}
