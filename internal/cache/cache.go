// Package cache provides the byte cache used for resolved permissions.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes keys matching pattern; only a trailing * wildcard is portable.
	Clear(ctx context.Context, pattern string) error
	Close() error
}

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

const permissionsPrefix = "authz:perms:"

// PermissionsKey is the key holding userID's effective permissions.
func PermissionsKey(userID uuid.UUID) string {
	return permissionsPrefix + userID.String()
}

// PermissionsPattern matches every permissions key.
func PermissionsPattern() string {
	return permissionsPrefix + "*"
}
