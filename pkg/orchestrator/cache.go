package orchestrator

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry is a memoized result with its write timestamp.
type cacheEntry[R any] struct {
	at     time.Time
	result R
}

// queryCache memoizes results keyed by normalized query. Capacity is
// bounded by an LRU; freshness is enforced lazily on read so the TTL can
// change at runtime without a sweep.
type queryCache[R any] struct {
	entries *lru.Cache[string, cacheEntry[R]]
}

func newQueryCache[R any](capacity int) *queryCache[R] {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, _ := lru.New[string, cacheEntry[R]](capacity)
	return &queryCache[R]{entries: entries}
}

// get returns the cached result for query if it exists and is younger than
// ttl. An entry past its TTL is evicted and reported as a miss.
func (c *queryCache[R]) get(query string, ttl time.Duration) (R, bool) {
	var zero R
	entry, ok := c.entries.Get(query)
	if !ok {
		return zero, false
	}
	if time.Since(entry.at) > ttl {
		c.entries.Remove(query)
		return zero, false
	}
	return entry.result, true
}

// put stores a result for query, timestamped at write time.
func (c *queryCache[R]) put(query string, result R) {
	c.entries.Add(query, cacheEntry[R]{at: time.Now(), result: result})
}

func (c *queryCache[R]) len() int {
	return c.entries.Len()
}

func (c *queryCache[R]) purge() {
	c.entries.Purge()
}
