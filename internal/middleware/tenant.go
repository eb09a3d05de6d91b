package middleware

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/tenancy"
)

// TenantHeader lets a system administrator without a tenant claim act inside a tenant.
const TenantHeader = "X-Tenant-ID"

// selectTenant binds the tenant from TenantHeader when id is a system admin
// whose token carried no tenant. The header is ignored for everyone else.
func selectTenant(r *http.Request, id models.Identity, rc *tenancy.RequestContext) error {
	if !id.IsSystemAdmin() || id.HasTenant() {
		return nil
	}
	raw := r.Header.Get(TenantHeader)
	if raw == "" {
		return nil
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil || tenantID == uuid.Nil {
		return fmt.Errorf("%w: invalid %s format", apperr.ErrInvalidInput, TenantHeader)
	}
	rc.SetTenant(tenantID)
	return nil
}

// GetTenantID returns the active tenant of the request.
func GetTenantID(r *http.Request) (uuid.UUID, bool) {
	return tenancy.FromContext(r.Context()).Tenant()
}

// GetIdentity returns the verified caller of the request.
func GetIdentity(r *http.Request) (models.Identity, bool) {
	return tenancy.FromContext(r.Context()).Identity()
}
