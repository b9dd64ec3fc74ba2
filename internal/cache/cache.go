package cache

import (
	"context"
	"sync"
	"time"

	"github.com/AliTahir-101/weather-api/internal/models"
)

// Cache defines the interface for weather record caching implementations.
// Get returns the cached record if present and not expired; an expired entry
// is indistinguishable from an absent one. Set replaces the whole entry for
// the key atomically with respect to concurrent readers.
type Cache interface {
	Get(ctx context.Context, key string) (models.WeatherRecord, bool, error)
	Set(ctx context.Context, key string, value models.WeatherRecord, ttl time.Duration) error
}

// InMemoryCache implements Cache using a map with TTL-based expiration,
// guarded by a RWMutex so many readers never observe a half-written record.
// Expired entries are evicted lazily on access.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// cacheEntry wraps a cached record with its expiry timestamp.
type cacheEntry struct {
	value     models.WeatherRecord
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached record for the key if present and not expired.
// Returns (record, true, nil) on hit, (zero, false, nil) on miss or expiry.
// The returned record is a copy; the cache retains ownership of its own state.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.WeatherRecord, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.WeatherRecord{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Set may have raced us.
		if cur, ok := c.data[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return models.WeatherRecord{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a record with the specified TTL, replacing any existing entry
// for the key in one step.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.WeatherRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
