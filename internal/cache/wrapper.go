package cache

import (
	"encoding/json"
	"errors"
	"time"

	"plugin-directory-backend/internal/logger"
)

// CacheWrapper stores JSON encoded values of type T
type CacheWrapper[T any] struct {
	cache CacheService
	ttl   time.Duration
}

// NewCacheWrapper creates a new cache wrapper for type T
func NewCacheWrapper[T any](cache CacheService, ttl time.Duration) *CacheWrapper[T] {
	return &CacheWrapper[T]{cache: cache, ttl: ttl}
}

// Lookup returns the cached value for key. ok is false on a miss, a disabled
// cache or a corrupted entry; corrupted entries are dropped.
func (w *CacheWrapper[T]) Lookup(key string) (T, bool) {
	var result T

	data, err := w.cache.Get(key)
	if err != nil {
		if !errors.Is(err, ErrCacheDisabled) {
			logger.New().WithField("cache_key", key).Debug("Cache miss")
		}
		return result, false
	}

	if err := json.Unmarshal(data, &result); err != nil {
		logger.New().WithField("cache_key", key).WithError(err).Warn("Cached data is corrupted, treating as cache miss")
		_ = w.cache.Delete(key)
		return result, false
	}

	logger.New().WithField("cache_key", key).Debug("Cache hit")
	return result, true
}

// Store caches value under key. Errors are logged and swallowed.
func (w *CacheWrapper[T]) Store(key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.New().WithField("cache_key", key).WithError(err).Error("Failed to marshal for cache")
		return
	}
	if err := w.cache.Set(key, data, w.ttl); err != nil {
		logger.New().WithField("cache_key", key).WithError(err).Warn("Failed to cache value")
	}
}

// GetOrFetch attempts to get from cache, or fetches and caches if not found
func (w *CacheWrapper[T]) GetOrFetch(key string, fetchFn func() (T, error)) (T, error) {
	if result, ok := w.Lookup(key); ok {
		return result, nil
	}

	result, err := fetchFn()
	if err != nil {
		return result, err
	}
	w.Store(key, result)
	return result, nil
}

// Invalidate removes an item from the cache
func (w *CacheWrapper[T]) Invalidate(key string) error {
	return w.cache.Delete(key)
}
