package artwork

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache memoises resolved image URLs by key.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, url string)
}

// MemoryCache is an in-process Cache bounded by entry count.
type MemoryCache struct {
	c *ristretto.Cache[string, string]
}

// NewMemoryCache holds up to capacity URLs.
func NewMemoryCache(capacity int) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(key string) (string, bool) {
	return m.c.Get(key)
}

// Put stores url and waits until it is visible to Get.
func (m *MemoryCache) Put(key, url string) {
	m.c.Set(key, url, 1)
	m.c.Wait()
}

// Close releases the cache's background goroutines.
func (m *MemoryCache) Close() {
	m.c.Close()
}
