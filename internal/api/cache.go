package api

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache memoises encoded responses for the snapshot version being served.
// Reset moves it to a new version and drops everything cached for the old
// one; lookups and stores for any other version bypass it, so a request
// that started before a reload can never repopulate stale data.
// Concurrent misses on the same key share a single computation.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	version string
	entries map[string]memo

	flight singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

type memo struct {
	data   []byte
	stored time.Time
}

// CacheStats describes the cache for the current version.
type CacheStats struct {
	Version    string  `json:"version"`
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache creates a Cache holding at most maxEntries responses per
// version, each for at most ttl. A zero ttl never expires entries.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		now:        time.Now,
		entries:    make(map[string]memo),
	}
}

// Reset switches the cache to version and drops every entry.
func (c *Cache) Reset(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = version
	clear(c.entries)
}

// Get returns the response stored for key under version.
func (c *Cache) Get(version, key string) ([]byte, bool) {
	data, ok := c.lookup(version, key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// GetOrCompute returns the response for key under version, computing and
// storing it on a miss. Callers missing on the same key at the same time
// wait for one compute. The bool reports a hit; errors are not cached.
func (c *Cache) GetOrCompute(version, key string, compute func() ([]byte, error)) ([]byte, bool, error) {
	if data, ok := c.Get(version, key); ok {
		return data, true, nil
	}
	v, err, _ := c.flight.Do(version+"\x00"+key, func() (any, error) {
		// A flight that just finished may have stored it.
		if data, ok := c.lookup(version, key); ok {
			return data, nil
		}
		data, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(version, key, data)
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

func (c *Cache) lookup(version, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return nil, false
	}
	m, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expired(m) {
		delete(c.entries, key)
		return nil, false
	}
	return m.data, true
}

func (c *Cache) store(version, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.evict()
	}
	c.entries[key] = memo{data: data, stored: c.now()}
}

// evict drops expired entries, or the oldest one when none have expired.
// The caller holds mu.
func (c *Cache) evict() {
	oldest, first := "", true
	var at time.Time
	for k, m := range c.entries {
		if c.expired(m) {
			delete(c.entries, k)
			continue
		}
		if first || m.stored.Before(at) {
			oldest, at, first = k, m.stored, false
		}
	}
	if len(c.entries) >= c.maxEntries {
		delete(c.entries, oldest)
	}
}

func (c *Cache) expired(m memo) bool {
	return c.ttl > 0 && c.now().Sub(m.stored) > c.ttl
}

// Stats reports the current version, its entry count and the lookup
// counters accumulated since the cache was created.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	st := CacheStats{Version: c.version, Entries: len(c.entries), MaxEntries: c.maxEntries}
	c.mu.Unlock()

	st.Hits, st.Misses = c.hits.Load(), c.misses.Load()
	if n := st.Hits + st.Misses; n > 0 {
		st.HitRate = float64(st.Hits) / float64(n)
	}
	return st
}
