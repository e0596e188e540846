// Package cache implements the fetch pipeline's hub cache-hit tie-break
// rule (§4.E): a URL already fetched recently enough is served from
// memory instead of re-fetched, and a cache hit never creates a new
// HttpResponse row (the one documented exception to §3 invariant 2).
//
// Generalized from the teacher's scrape-response cache (keyed on
// url|format|extractMode, caching *models.ScrapeResponse) to key on the
// normalized URL alone and cache the fetched body plus its HttpResponse
// metadata.
package cache

import (
	"sync"
	"time"

	"github.com/metabench/hubcrawl/models"
)

// Entry is what the fetch pipeline caches per URL.
type Entry struct {
	Response  models.HTTPResponse
	Body      []byte
	Source    models.FetchSource
	CreatedAt time.Time
}

type record struct {
	entry     Entry
	createdAt time.Time
}

// Cache is an in-memory, LRU-ish (random-evict at capacity, matching the
// teacher's policy) store of recent fetch results, keyed by normalized URL.
// Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*record
	maxEntries int
}

// New creates a Cache with the given capacity. A background goroutine
// evicts entries older than 1 hour every 5 minutes, matching the
// teacher's cleanup cadence.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c := &Cache{
		store:      make(map[string]*record),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Unbounded tells Get to accept a cached entry of any age — the tie-break
// rule's policy for article-kind URLs, which don't go stale.
const Unbounded time.Duration = -1

// Get returns the cached entry for normalizedURL if present and within
// maxAge. maxAge == 0 disables the lookup entirely; maxAge == Unbounded
// accepts any cached age (article-kind URLs); otherwise an entry older
// than maxAge is treated as a miss (hub-kind URLs, §4.E).
func (c *Cache) Get(normalizedURL string, maxAge time.Duration) (Entry, bool) {
	if maxAge == 0 {
		return Entry{}, false
	}
	c.mu.RLock()
	r, ok := c.store[normalizedURL]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if maxAge != Unbounded && time.Since(r.createdAt) > maxAge {
		return Entry{}, false
	}
	return r.entry, true
}

// Set stores a fetch result for normalizedURL, evicting a random entry
// first if at capacity.
func (c *Cache) Set(normalizedURL string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	e.CreatedAt = time.Now()
	c.store[normalizedURL] = &record{entry: e, createdAt: e.CreatedAt}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, r := range c.store {
			if r.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
