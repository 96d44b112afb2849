package matchcache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"focusgate/internal/focus/domain"
	"focusgate/internal/focus/services/guard"
)

// decisionCache is an LRU-backed implementation of guard.DecisionCache.
// Keys are raw URL strings; values are the snapshot-relative policy
// decision. It tracks basic metrics: hits, misses, and evictions.
type decisionCache struct {
	lru       *lru.Cache[string, domain.Decision]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// New creates a DecisionCache with the given capacity. If size <= 0, a
// disabled no-op cache is returned that always misses.
func New(size int) (guard.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var dc decisionCache
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.Decision) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return &dc, nil
}

// Get looks up a decision by URL, updating hit/miss counters.
func (c *decisionCache) Get(url string) (domain.Decision, bool) {
	if val, ok := c.lru.Get(url); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	var zero domain.Decision
	return zero, false
}

// Put stores a decision by URL.
func (c *decisionCache) Put(url string, d domain.Decision) {
	c.lru.Add(url, d)
}

// Len returns the number of entries in the cache.
func (c *decisionCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the callback.
func (c *decisionCache) Purge() { c.lru.Purge() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *decisionCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

// disabledCache implementation

func (d *disabledCache) Get(string) (domain.Decision, bool) {
	var zero domain.Decision
	return zero, false
}

func (d *disabledCache) Put(string, domain.Decision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ guard.DecisionCache = (*decisionCache)(nil)
var _ guard.DecisionCache = (*disabledCache)(nil)
