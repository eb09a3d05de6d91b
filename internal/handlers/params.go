package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/middleware"
	"github.com/otcheredev/clinic-core/internal/models"
)

// scope returns the tenant and caller a handler acts for. Only system admins
// may act without a tenant; uuid.Nil then means "all tenants".
func scope(r *http.Request) (uuid.UUID, models.Identity, error) {
	id, ok := middleware.GetIdentity(r)
	if !ok {
		return uuid.Nil, models.Identity{}, apperr.ErrUnauthenticated
	}
	tenantID, ok := middleware.GetTenantID(r)
	if !ok && !id.IsSystemAdmin() {
		return uuid.Nil, id, apperr.ErrTenantRequired
	}
	return tenantID, id, nil
}

// tenantScope is scope for operations that always need a tenant.
func tenantScope(r *http.Request) (uuid.UUID, models.Identity, error) {
	tenantID, id, err := scope(r)
	if err != nil {
		return tenantID, id, err
	}
	if tenantID == uuid.Nil {
		return tenantID, id, apperr.ErrTenantRequired
	}
	return tenantID, id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", apperr.ErrInvalidInput, name)
	}
	return id, nil
}

func queryUUID(q url.Values, name string) (uuid.UUID, error) {
	raw := q.Get(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", apperr.ErrInvalidInput, name)
	}
	return id, nil
}

func queryInt(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperr.ErrInvalidInput, name)
	}
	return n, nil
}
