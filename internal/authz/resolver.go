// Package authz resolves effective permissions and decides whether a request may proceed.
package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/cache"
	"github.com/otcheredev/clinic-core/internal/metrics"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

// AssignmentReader loads the live roles assigned to a user.
type AssignmentReader interface {
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error)
}

// Resolver computes a user's effective permissions as the union of their roles.
type Resolver struct {
	reader  AssignmentReader
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics

	// generation counts invalidations. A resolve only caches its result
	// when no invalidation ran between its read and its write.
	mu         sync.Mutex
	generation uint64
}

// NewResolver creates a resolver. A nil cache disables caching; role and
// assignment writers must call Invalidate or InvalidateAll when it is set.
func NewResolver(reader AssignmentReader, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *Resolver {
	return &Resolver{reader: reader, cache: c, ttl: ttl, metrics: m}
}

// EffectivePermissions returns the union of the user's role permissions.
// Any system-admin role adds the full-access sentinel.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID uuid.UUID) (models.PermissionSet, error) {
	if perms, ok := r.cached(ctx, userID); ok {
		return perms, nil
	}

	gen := r.currentGeneration()
	roles, err := r.reader.RolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	perms := Union(roles)
	r.store(ctx, userID, perms, gen)
	return perms, nil
}

// Union merges role permissions. Order and duplicates do not affect the result.
func Union(roles []models.Role) models.PermissionSet {
	perms := models.PermissionSet{}
	for _, role := range roles {
		perms.Union(role.Permissions)
		if role.IsSystemAdmin {
			perms.Add(models.PermSystemAdmin)
		}
	}
	return perms
}

// Invalidate drops the cached permissions of one user.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if r.cache == nil {
		return nil
	}
	r.bump()
	if err := r.cache.Delete(ctx, cache.PermissionsKey(userID)); err != nil {
		return fmt.Errorf("failed to invalidate permissions: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached permission set.
func (r *Resolver) InvalidateAll(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	r.bump()
	if err := r.cache.Clear(ctx, cache.PermissionsPattern()); err != nil {
		return fmt.Errorf("failed to invalidate permissions: %w", err)
	}
	return nil
}

func (r *Resolver) cached(ctx context.Context, userID uuid.UUID) (models.PermissionSet, bool) {
	if r.cache == nil {
		return nil, false
	}
	b, err := r.cache.Get(ctx, cache.PermissionsKey(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Ctx(ctx).Warn().Err(err).Msg("permission cache read failed")
		}
		r.metrics.PermissionCache(false)
		return nil, false
	}

	var perms models.PermissionSet
	if err := json.Unmarshal(b, &perms); err != nil {
		// entry written under an older catalog
		r.metrics.PermissionCache(false)
		return nil, false
	}
	r.metrics.PermissionCache(true)
	return perms, true
}

func (r *Resolver) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Resolver) bump() {
	r.mu.Lock()
	r.generation++
	r.mu.Unlock()
}

// store writes perms unless an invalidation happened after gen was read.
// The lock is held across the write so a concurrent Invalidate either
// skips this entry or deletes it.
func (r *Resolver) store(ctx context.Context, userID uuid.UUID, perms models.PermissionSet, gen uint64) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return
	}
	if err := r.cache.Set(ctx, cache.PermissionsKey(userID), b, r.ttl); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("permission cache write failed")
	}
}
