package cache

import "strings"

// CacheKeyPrefix defines prefixes for cache keys to organize cached data
type CacheKeyPrefix string

const (
	// KeyPrefixPluginBySyncID maps a sync plugin id to the plugin id created from it
	KeyPrefixPluginBySyncID CacheKeyPrefix = "plugin:sync"
)

// BuildKey constructs a cache key from prefix and identifiers
func BuildKey(prefix CacheKeyPrefix, parts ...string) string {
	if len(parts) == 0 {
		return string(prefix)
	}
	return string(prefix) + ":" + strings.Join(parts, ":")
}
