package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/internal/middleware"
	"github.com/otcheredev/clinic-core/internal/models"
)

type MeHandler struct {
	resolver authz.PermissionResolver
}

func NewMeHandler(resolver authz.PermissionResolver) *MeHandler {
	return &MeHandler{resolver: resolver}
}

type permissionsResponse struct {
	UserID      uuid.UUID            `json:"user_id"`
	TenantID    *uuid.UUID           `json:"tenant_id,omitempty"`
	UserType    models.UserKind      `json:"user_type"`
	Permissions models.PermissionSet `json:"permissions"`
}

// Permissions returns the caller's effective permissions
func (h *MeHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r)
	if !ok {
		httpx.WriteError(w, r, apperr.ErrUnauthenticated)
		return
	}

	perms, err := h.resolver.EffectivePermissions(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if id.IsSystemAdmin() {
		perms = copySet(perms)
		perms.Add(models.PermSystemAdmin)
	}

	resp := permissionsResponse{UserID: id.UserID, UserType: id.Kind, Permissions: perms}
	if tenantID, ok := middleware.GetTenantID(r); ok {
		resp.TenantID = &tenantID
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// The resolver may hand out a cached set; never mutate it in place.
func copySet(s models.PermissionSet) models.PermissionSet {
	out := make(models.PermissionSet, len(s)+1)
	out.Union(s)
	return out
}
