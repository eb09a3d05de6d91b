package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/internal/models"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditReader reads a tenant's audit trail.
type AuditReader interface {
	GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
	GetByResource(ctx context.Context, tenantID uuid.UUID, resourceType, resourceID string) ([]models.AuditLog, error)
}

type AuditHandler struct {
	audit AuditReader
}

func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type auditPage struct {
	Items  []models.AuditLog `json:"items"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// List returns the caller's tenant audit log, newest first. resourceType and
// resourceId narrow it to the history of one resource.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := tenantScope(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	q := r.URL.Query()
	resourceType, resourceID := q.Get("resourceType"), q.Get("resourceId")
	if (resourceType == "") != (resourceID == "") {
		httpx.WriteError(w, r, fmt.Errorf("%w: resourceType and resourceId go together", apperr.ErrInvalidInput))
		return
	}

	if resourceType != "" {
		logs, err := h.audit.GetByResource(r.Context(), tenantID, resourceType, resourceID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, auditPage{Items: nonNil(logs)})
		return
	}

	limit, err := queryInt(q, "limit")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	offset, err := queryInt(q, "offset")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if limit > maxAuditLimit {
		httpx.WriteError(w, r, fmt.Errorf("%w: limit must not exceed %d", apperr.ErrInvalidInput, maxAuditLimit))
		return
	}
	if limit == 0 {
		limit = defaultAuditLimit
	}

	logs, err := h.audit.GetByTenantID(r.Context(), tenantID, limit, offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, auditPage{Items: nonNil(logs), Limit: limit, Offset: offset})
}

func nonNil(logs []models.AuditLog) []models.AuditLog {
	if logs == nil {
		return []models.AuditLog{}
	}
	return logs
}
