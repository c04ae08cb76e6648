// Package cache provides a small TTL cache service, constructed once per
// process and passed by reference to consumers.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a bounded TTL cache over string keys.
type Cache[T any] struct {
	lru *expirable.LRU[string, T]
}

// New creates a cache that holds up to size entries for ttl each.
func New[T any](size int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{lru: expirable.NewLRU[string, T](size, nil, ttl)}
}

// Get returns the cached value for key when present and unexpired.
func (c *Cache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

// Set stores value under key.
func (c *Cache[T]) Set(key string, value T) {
	c.lru.Add(key, value)
}

// Remove evicts key if present.
func (c *Cache[T]) Remove(key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *Cache[T]) Len() int {
	return c.lru.Len()
}
