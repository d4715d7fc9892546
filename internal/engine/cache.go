package engine

import (
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	m "psfix.dev/pkg/psfix/internal/model"
	"psfix.dev/pkg/psfix/internal/syntax"
)

// CacheEntry memoizes the parse and detection results for one content hash.
// Diagnostics are stored path-free and rebound by the caller, so identical
// content in different files shares a single entry.
type CacheEntry struct {
	Hash        m.Hash
	Tree        *syntax.Tree
	Diagnostics []m.Diagnostic
	CreatedAt   time.Time
}

// Cache memoizes per-content computation, keyed by content hash. Misses for
// the same key are deduplicated with single-flight: exactly one computation
// runs and concurrent waiters share its result. Eviction is LRU bounded by
// entry count and only ever costs recomputation, never correctness.
type Cache struct {
	entries *lru.Cache[m.Hash, *CacheEntry]
	group   singleflight.Group
}

// NewCache builds a cache bounded to maxEntries.
func NewCache(maxEntries int) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = m.DefaultOptions().CacheEntries
	}

	entries, err := lru.New[m.Hash, *CacheEntry](maxEntries)
	if err != nil {
		return nil, err
	}

	return &Cache{entries: entries}, nil
}

// GetOrCompute returns the entry for hash, computing it at most once even
// under concurrent callers. A cached entry whose recorded hash disagrees
// with its key is treated as corrupt: it is evicted and recomputed.
func (c *Cache) GetOrCompute(hash m.Hash, compute func() (*CacheEntry, error)) (*CacheEntry, error) {
	if entry, ok := c.entries.Get(hash); ok {
		if entry.Hash == hash {
			return entry, nil
		}

		slog.Warn("evicting inconsistent cache entry",
			"error", &CacheInconsistencyError{Key: string(hash), Recorded: string(entry.Hash)})
		c.entries.Remove(hash)
	}

	result, err, _ := c.group.Do(string(hash), func() (any, error) {
		// Re-check under single-flight: a concurrent caller may have stored
		// the entry while this one waited.
		if entry, ok := c.entries.Get(hash); ok && entry.Hash == hash {
			return entry, nil
		}

		entry, err := compute()
		if err != nil {
			return nil, err
		}

		entry.Hash = hash
		entry.CreatedAt = time.Now()
		c.entries.Add(hash, entry)

		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*CacheEntry), nil
}

// Invalidate drops the entry for hash.
func (c *Cache) Invalidate(hash m.Hash) {
	c.entries.Remove(hash)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
