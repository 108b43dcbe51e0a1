// Package ristretto implements the cache port in process using
// dgraph-io/ristretto. It serves as the L1 of the permission cache.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a cost-bounded in-process byte cache.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache bounded to maxCostBytes of entries.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get returns the cached value for key, if present.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.c.Get(key)
	return v, ok, nil
}

// Set stores value under key with the given TTL. The write is synchronous:
// a permission answer cached on one request must be visible to the next.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(key)+len(value)), ttl)
	c.c.Wait()
	return nil
}

// Delete removes key from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
