package cache

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Common cache errors
var (
	ErrCacheMiss     = errors.New("cache miss")
	ErrCacheDisabled = errors.New("cache is disabled")
)

//go:generate mockgen -source=cache.go -destination=../mocks/cache_mocks.go -package=mocks

// CacheService defines the interface for caching operations.
type CacheService interface {
	// Get retrieves a value from cache by key
	Get(key string) ([]byte, error)
	// Set stores a value in cache with the given TTL; ttl <= 0 uses the default
	Set(key string, value []byte, ttl time.Duration) error
	// Delete removes a value from cache
	Delete(key string) error
	// Clear removes all items from cache
	Clear()
}

// CacheConfig holds configuration for the cache service
type CacheConfig struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Enabled         bool
}

// DefaultCacheConfig returns a sensible default configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 20 * time.Minute,
		Enabled:         true,
	}
}

// InMemoryCache implements CacheService using go-cache
type InMemoryCache struct {
	cache   *gocache.Cache
	config  CacheConfig
	enabled bool
}

// NewInMemoryCache creates a new in-memory cache instance
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{
		cache:   gocache.New(config.DefaultTTL, config.CleanupInterval),
		config:  config,
		enabled: config.Enabled,
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(key string) ([]byte, error) {
	if !c.enabled {
		return nil, ErrCacheDisabled
	}

	value, found := c.cache.Get(key)
	if !found {
		return nil, ErrCacheMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Set stores a value in the cache with the given TTL
func (c *InMemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the cache
func (c *InMemoryCache) Delete(key string) error {
	if c.enabled {
		c.cache.Delete(key)
	}
	return nil
}

// Clear removes all items from the cache
func (c *InMemoryCache) Clear() {
	if c.enabled {
		c.cache.Flush()
	}
}

// ItemCount returns the number of items currently cached
func (c *InMemoryCache) ItemCount() int {
	return c.cache.ItemCount()
}

// NoOpCache implements CacheService but does nothing
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns ErrCacheDisabled
func (c *NoOpCache) Get(key string) ([]byte, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing
func (c *NoOpCache) Set(key string, value []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing
func (c *NoOpCache) Delete(key string) error {
	return nil
}

// Clear does nothing
func (c *NoOpCache) Clear() {}

// New returns an InMemoryCache when enabled, otherwise a NoOpCache
func New(config CacheConfig) CacheService {
	if !config.Enabled {
		return NewNoOpCache()
	}
	return NewInMemoryCache(config)
}
