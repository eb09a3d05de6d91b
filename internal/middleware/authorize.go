package middleware

import (
	"context"
	"net/http"

	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/tenancy"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Authorizer attaches gate checks to routes.
type Authorizer struct {
	gate  *authz.Gate
	audit AuditWriter
}

// NewAuthorizer creates an authorizer. audit may be nil.
func NewAuthorizer(gate *authz.Gate, audit AuditWriter) *Authorizer {
	return &Authorizer{gate: gate, audit: audit}
}

// Require rejects requests that do not meet req before the handler runs.
func (a *Authorizer) Require(req authz.Requirements) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := tenancy.FromContext(r.Context())
			if err := a.gate.Check(r.Context(), req, rc); err != nil {
				if apperr.IsAuthorization(err) {
					logger.Ctx(r.Context()).Warn().Err(err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("access denied")
					a.recordDenied(r, rc, err)
				}
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Anonymous requests are not audited; there is nobody to attribute them to.
func (a *Authorizer) recordDenied(r *http.Request, rc *tenancy.RequestContext, reason error) {
	if a.audit == nil {
		return
	}
	id, ok := rc.Identity()
	if !ok {
		return
	}
	tenantID, _ := rc.Tenant()

	entry := models.NewAuditLog(id, tenantID, models.AuditAccessDenied, "route", r.Method+" "+r.URL.Path)
	entry.Status = models.AuditFailure
	entry.ErrorMessage = reason.Error()
	entry.IPAddress = clientIP(r)
	entry.UserAgent = r.UserAgent()

	ctx := context.WithoutCancel(r.Context())
	if err := a.audit.Create(ctx, entry); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to write audit log")
	}
}
