package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Cache on an in-process go-cache store
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a new in-memory cache. Entries without a TTL use defaultTTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, time.Minute)}
}

// Get retrieves a value from cache
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

// Set stores a value in cache
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	// stored copy so callers can reuse their buffer
	m.store.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete removes a value from cache
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Clear removes all keys matching pattern
func (m *MemoryCache) Clear(_ context.Context, pattern string) error {
	for key := range m.store.Items() {
		if matchPattern(key, pattern) {
			m.store.Delete(key)
		}
	}
	return nil
}

// Close flushes the cache
func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}

// matchPattern performs simple pattern matching
func matchPattern(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	return s == pattern
}
