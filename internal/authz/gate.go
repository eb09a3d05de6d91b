package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/metrics"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/tenancy"
)

// PermissionResolver is the part of Resolver the gate needs.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID uuid.UUID) (models.PermissionSet, error)
}

// Requirements are declared per operation.
type Requirements struct {
	TenantRequired bool
	Permissions    []models.Permission
}

// Tenant requires an active tenant plus perms.
func Tenant(perms ...models.Permission) Requirements {
	return Requirements{TenantRequired: true, Permissions: perms}
}

// Perms requires perms without demanding a tenant.
func Perms(perms ...models.Permission) Requirements {
	return Requirements{Permissions: perms}
}

// Gate checks tenant presence and permission sufficiency. It has no side effects
// beyond metrics, so repeated checks give the same answer.
type Gate struct {
	resolver PermissionResolver
	metrics  *metrics.Metrics
}

// NewGate creates a gate.
func NewGate(resolver PermissionResolver, m *metrics.Metrics) *Gate {
	return &Gate{resolver: resolver, metrics: m}
}

// Check returns nil when the request may proceed.
func (g *Gate) Check(ctx context.Context, req Requirements, rc *tenancy.RequestContext) error {
	err := g.check(ctx, req, rc)
	g.metrics.AuthzDecision(decision(err))
	return err
}

func (g *Gate) check(ctx context.Context, req Requirements, rc *tenancy.RequestContext) error {
	if req.TenantRequired && !rc.HasTenant() {
		return apperr.ErrTenantRequired
	}
	if len(req.Permissions) == 0 {
		return nil
	}

	id, ok := rc.Identity()
	if !ok {
		return apperr.ErrUnauthenticated
	}
	if id.IsSystemAdmin() {
		return nil
	}
	if tenant, ok := rc.Tenant(); ok && id.TenantID != tenant {
		return apperr.ErrTenantMismatch
	}

	perms, err := g.resolver.EffectivePermissions(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve permissions: %w", err)
	}
	if missing := perms.Missing(req.Permissions); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, p := range missing {
			names[i] = string(p)
		}
		return fmt.Errorf("%w: missing %s", apperr.ErrInsufficientPermissions, strings.Join(names, ", "))
	}
	return nil
}

func decision(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, apperr.ErrTenantRequired):
		return "tenant_required"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperr.ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, apperr.ErrInsufficientPermissions):
		return "insufficient_permissions"
	default:
		return "error"
	}
}
