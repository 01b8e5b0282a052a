// Package cache holds fetched transaction pages for a fixed time-to-live.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// DefaultTTL is how long a fetched page is served without refetching.
const DefaultTTL = 5 * time.Minute

type entry struct {
	page      models.Page
	fetchedAt time.Time
}

// PageCache is an in-memory page index -> page map with expiry on read.
// It is an optimization only; callers must stay correct with it disabled.
type PageCache struct {
	clock   clockwork.Clock
	ttl     time.Duration
	mu      sync.Mutex
	entries map[int]entry
}

// New creates a cache. A non-positive ttl falls back to DefaultTTL; a nil clock uses the real clock.
func New(ttl time.Duration, clock clockwork.Clock) *PageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PageCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[int]entry),
	}
}

// Get returns the cached page, or false when absent or when its age has reached the TTL.
func (c *PageCache) Get(index int) (models.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[index]
	if !ok {
		return models.Page{}, false
	}
	if c.clock.Since(e.fetchedAt) >= c.ttl {
		delete(c.entries, index)
		return models.Page{}, false
	}
	return e.page.Clone(), true
}

// Put stores page under index, replacing any previous entry.
func (c *PageCache) Put(index int, page models.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[index] = entry{page: page.Clone(), fetchedAt: c.clock.Now()}
}

// InvalidateAll drops every entry.
func (c *PageCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int]entry)
}

// Len returns the number of stored entries, expired ones included.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *PageCache) TTL() time.Duration {
	return c.ttl
}
