package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/zipweather/zip-weather-service/internal/models"
	"github.com/zipweather/zip-weather-service/internal/observability"
)

// Cache defines the interface for weather result caching implementations.
// Get returns the cached result if present and not expired; Set stores a
// result under the key, overwriting any existing entry.
type Cache interface {
	Get(ctx context.Context, key string) (models.WeatherResult, bool, error)
	Set(ctx context.Context, key string, value models.WeatherResult) error
}

// InMemoryCache implements Cache with a bounded, expiry-after-write map.
// Entries are evicted when they expire (checked on access) and, at capacity,
// the least-recently-written entry is evicted to make room. Safe for
// concurrent use.
type InMemoryCache struct {
	mu         sync.Mutex
	data       map[string]*list.Element
	order      *list.List // front = oldest write
	maxEntries int
	ttl        time.Duration
}

type memEntry struct {
	key       string
	value     models.WeatherResult
	expiresAt time.Time
}

// NewInMemoryCache creates an in-memory cache holding at most maxEntries
// values, each expiring ttl after write.
func NewInMemoryCache(maxEntries int, ttl time.Duration) *InMemoryCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &InMemoryCache{
		data:       make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get retrieves the cached result for key if present and not expired.
// Returns (value, true, nil) on hit, (zero, false, nil) on miss. Expired
// entries are removed on access.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.WeatherResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.data[key]
	if !ok {
		return models.WeatherResult{}, false, nil
	}
	entry := elem.Value.(*memEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		return models.WeatherResult{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the result under key, overwriting any existing entry and
// resetting its expiry. At capacity the oldest-written entry is evicted.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.WeatherResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)
	if elem, ok := c.data[key]; ok {
		entry := elem.Value.(*memEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToBack(elem)
		return nil
	}
	for len(c.data) >= c.maxEntries {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		observability.CacheEvictionsTotal.Inc()
	}
	elem := c.order.PushBack(&memEntry{key: key, value: value, expiresAt: expiresAt})
	c.data[key] = elem
	return nil
}

// Len returns the number of entries currently stored, including any that
// have expired but not yet been removed on access.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// removeLocked deletes the entry from both the map and the recency list.
// Must be called with the mutex held.
func (c *InMemoryCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memEntry)
	c.order.Remove(elem)
	delete(c.data, entry.key)
}
