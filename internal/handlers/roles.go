package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/services"
)

type RoleHandler struct {
	roles *services.RoleService
}

func NewRoleHandler(roles *services.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// Create creates a role in the active tenant, or a global role for system admins
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req models.RoleRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	role, err := h.roles.Create(r.Context(), tenantID, actor, &req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, role)
}

// List returns the roles visible to the tenant
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeRoles(w, r)(h.roles.List(r.Context(), tenantID))
}

// ListTenantAdmin returns the visible tenant-admin roles
func (h *RoleHandler) ListTenantAdmin(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeRoles(w, r)(h.roles.ListTenantAdminRoles(r.Context(), tenantID))
}

// ListSystem returns the system-admin roles
func (h *RoleHandler) ListSystem(w http.ResponseWriter, r *http.Request) {
	h.writeRoles(w, r)(h.roles.ListSystemRoles(r.Context()))
}

// ListByPermission returns the visible roles granting a permission
func (h *RoleHandler) ListByPermission(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	perm, err := models.ParsePermission(chi.URLParam(r, "permission"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeRoles(w, r)(h.roles.ListByPermission(r.Context(), tenantID, perm))
}

// Get returns one role
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	role, err := h.roles.Get(r.Context(), tenantID, id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, role)
}

// Update changes a role
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req models.RoleUpdateRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	role, err := h.roles.Update(r.Context(), tenantID, actor, id, &req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, role)
}

// Delete soft-deletes a role that is no longer assigned
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.roles.Delete(r.Context(), tenantID, actor, id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Assign grants a role to a user
func (h *RoleHandler) Assign(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var req models.AssignRoleRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	ur, err := h.roles.Assign(r.Context(), tenantID, actor, &req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ur)
}

// Unassign removes a role from a user
func (h *RoleHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	userID, err := pathUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	roleID, err := pathUUID(r, "roleId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.roles.Unassign(r.Context(), tenantID, actor, userID, roleID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserRoles lists a user's role assignments
func (h *RoleHandler) UserRoles(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	userID, err := pathUUID(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	rows, err := h.roles.UserRoles(r.Context(), tenantID, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

// CreateDefaults seeds the standard clinic roles for a tenant
func (h *RoleHandler) CreateDefaults(w http.ResponseWriter, r *http.Request) {
	_, actor, err := scope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	tenantID, err := pathUUID(r, "tenantId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	roles, err := h.roles.CreateDefaultRoles(r.Context(), tenantID, actor)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, roles)
}

func (h *RoleHandler) writeRoles(w http.ResponseWriter, r *http.Request) func([]models.Role, error) {
	return func(roles []models.Role, err error) {
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, roles)
	}
}
