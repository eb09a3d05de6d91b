package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/otcheredev/clinic-core/internal/auth"
	"github.com/otcheredev/clinic-core/internal/httpx"
	"github.com/otcheredev/clinic-core/internal/tenancy"
	"github.com/otcheredev/clinic-core/pkg/logger"
	"github.com/rs/zerolog/log"
)

// Authenticate creates the request context for every request and fills it from
// the bearer token. Bad or missing tokens leave the request anonymous; the
// authorization middleware decides whether that is acceptable.
func Authenticate(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := tenancy.New()
			ctx := tenancy.WithRequestContext(r.Context(), rc)

			lc := log.With().Str("request_id", chimiddleware.GetReqID(ctx))
			ctx = logger.WithContext(ctx, lc.Logger())
			r = r.WithContext(ctx)

			id, ok := verifier.Resolve(ctx, auth.BearerToken(r.Header.Get("Authorization")), rc)
			if ok {
				if err := selectTenant(r, id, rc); err != nil {
					httpx.WriteError(w, r, err)
					return
				}
				lc = lc.Str("user_id", id.UserID.String())
			}
			if tenantID, ok := rc.Tenant(); ok {
				lc = lc.Str("tenant_id", tenantID.String())
			}

			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx, lc.Logger())))
		})
	}
}
