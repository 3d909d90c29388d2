package dblayer

import (
	"context"
	"sync"
	"time"
)

type monthKey struct {
	Year  int
	Month int
}

type monthCacheEntry struct {
	data      *MonthData
	fetchedAt time.Time
}

// monthCache is a process-wide read cache keyed by (year, month) with a
// short TTL.  Mutators call InvalidateAll after every write: the key
// granularity cannot selectively invalidate, so the whole cache is traded
// away for simplicity.  Concurrent misses on the same key each run their own
// fetch; the last one to finish wins.
type monthCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[monthKey]monthCacheEntry
}

func newMonthCache(ttl time.Duration, now func() time.Time) *monthCache {
	return &monthCache{
		ttl:     ttl,
		now:     now,
		entries: map[monthKey]monthCacheEntry{},
	}
}

// GetOrFetch returns the cached value for key if it is younger than the TTL,
// and otherwise runs fetch and caches its result.
func (c *monthCache) GetOrFetch(ctx context.Context, key monthKey, fetch func(ctx context.Context) (*MonthData, error)) (*MonthData, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	fresh := ok && c.now().Sub(entry.fetchedAt) < c.ttl
	c.mu.Unlock()

	if fresh {
		return entry.data, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = monthCacheEntry{data: data, fetchedAt: c.now()}
	c.mu.Unlock()

	return data, nil
}

// InvalidateAll drops every cached month.
func (c *monthCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = map[monthKey]monthCacheEntry{}
	c.mu.Unlock()
}
