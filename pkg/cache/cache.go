// Package cache provides a bounded cache for parsed query batches, keyed
// by the raw SQL text. Repeat analyses of the same input skip the parse.
package cache

import (
	"hash/fnv"
	"sync"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

// DefaultMaxSize is the entry cap used when no size is given.
const DefaultMaxSize = 1000

// QueryCache is a size-bounded map from SQL text to its parsed batch.
// When the cap is reached, half of the entries are evicted to make room.
// Safe for concurrent use.
type QueryCache struct {
	mu      sync.RWMutex
	maxSize int
	entries map[uint64][]*query.Query
}

// New creates a cache holding at most maxSize batches. A non-positive
// size falls back to DefaultMaxSize.
func New(maxSize int) *QueryCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &QueryCache{
		maxSize: maxSize,
		entries: make(map[uint64][]*query.Query),
	}
}

// Get returns the cached batch for sql, if present. The returned queries
// are shared; callers must treat them as read-only.
func (c *QueryCache) Get(sql string) ([]*query.Query, bool) {
	key := hashKey(sql)
	c.mu.RLock()
	defer c.mu.RUnlock()
	queries, ok := c.entries[key]
	return queries, ok
}

// Put stores a parsed batch, evicting half the cache first if it is full.
func (c *QueryCache) Put(sql string, queries []*query.Query) {
	key := hashKey(sql)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		target := c.maxSize / 2
		for k := range c.entries {
			if len(c.entries) <= target {
				break
			}
			delete(c.entries, k)
		}
	}
	c.entries[key] = queries
}

// Len reports the number of cached batches.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func hashKey(sql string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sql))
	return h.Sum64()
}
