// Package lru provides a bounded recency cache. It is an optimization layer
// only: entries can be dropped at any time and rebuilt from the system of
// record.
package lru

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Stats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

type Cache[K comparable, V any] struct {
	cache  *lru.Cache[K, V]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func New[K comparable, V any](size int) (*Cache[K, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid cache size %d, must be positive", size)
	}
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{cache: c}, nil
}

// Add inserts or refreshes key and marks it most recently used. It reports
// whether the least recently used entry was evicted to make room.
func (c *Cache[K, V]) Add(key K, value V) bool {
	return c.cache.Add(key, value)
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	value, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

func (c *Cache[K, V]) Contains(key K) bool {
	return c.cache.Contains(key)
}

func (c *Cache[K, V]) Remove(key K) bool {
	return c.cache.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.cache.Len()
}

func (c *Cache[K, V]) Purge() {
	c.cache.Purge()
}

func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.cache.Len(),
	}
}
