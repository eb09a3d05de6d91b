// Package tenancy carries the per-request tenant and caller identity.
package tenancy

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/models"
)

// RequestContext is created empty for every request and discarded when it ends.
// Tenant and identity are each written at most once; later writes are ignored.
type RequestContext struct {
	mu       sync.RWMutex
	tenantID uuid.UUID
	identity *models.Identity
}

// New returns an empty request context.
func New() *RequestContext {
	return &RequestContext{}
}

// SetTenant binds the active tenant. A nil id or a second call is a no-op.
func (rc *RequestContext) SetTenant(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.tenantID != uuid.Nil {
		return false
	}
	rc.tenantID = id
	return true
}

// Tenant returns the active tenant.
func (rc *RequestContext) Tenant() (uuid.UUID, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.tenantID, rc.tenantID != uuid.Nil
}

// HasTenant reports whether a tenant is bound.
func (rc *RequestContext) HasTenant() bool {
	_, ok := rc.Tenant()
	return ok
}

// SetIdentity records the verified caller. A second call is a no-op.
func (rc *RequestContext) SetIdentity(id models.Identity) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.identity != nil {
		return false
	}
	rc.identity = &id
	return true
}

// Identity returns the verified caller.
func (rc *RequestContext) Identity() (models.Identity, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.identity == nil {
		return models.Identity{}, false
	}
	return *rc.identity, true
}

type ctxKey struct{}

// WithRequestContext stores rc in ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the request context stored in ctx, or a new empty one.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(ctxKey{}).(*RequestContext); ok && rc != nil {
		return rc
	}
	return New()
}
