package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/clinic-core/internal/auth"
	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/metrics"
	"github.com/otcheredev/clinic-core/internal/middleware"
	"github.com/otcheredev/clinic-core/internal/models"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Verifier     *auth.Verifier
	Authorizer   *middleware.Authorizer
	Metrics      *metrics.Metrics
	CORS         cors.Options
	Health       *HealthHandler
	Appointments *AppointmentHandler
	Roles        *RoleHandler
	Me           *MeHandler
	Audit        *AuditHandler

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter builds the chi router with every route and its requirements.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Authenticate(cfg.Verifier))
	r.Use(middleware.RequestLogger(cfg.Metrics))
	r.Use(cors.Handler(cfg.CORS))

	// Health endpoints (no authentication required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	require := cfg.Authorizer.Require

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			a := cfg.Appointments
			r.With(require(authz.Tenant(models.PermAppointmentCreate))).Post("/", a.Create)
			r.With(require(authz.Perms(models.PermAppointmentRead))).Get("/", a.List)
			r.With(require(authz.Tenant(models.PermAppointmentRead))).Get("/calendar", a.Calendar)
			r.With(require(authz.Perms(models.PermAppointmentRead))).Get("/{id}", a.Get)
			r.With(require(authz.Perms(models.PermAppointmentUpdate))).Patch("/{id}", a.Update)
			r.With(require(authz.Perms(models.PermAppointmentUpdate))).Patch("/{id}/reschedule", a.Reschedule)
			r.With(require(authz.Perms(models.PermAppointmentDelete))).Delete("/{id}", a.Delete)
		})

		r.Route("/roles", func(r chi.Router) {
			h := cfg.Roles
			manage := require(authz.Perms(models.PermTenantUsersManage))
			read := require(authz.Perms(models.PermUserRead, models.PermTenantUsersManage))
			system := require(authz.Perms(models.PermSystemAdmin))

			r.With(manage).Post("/", h.Create)
			r.With(read).Get("/", h.List)
			r.With(read).Get("/tenant", h.ListTenantAdmin)
			r.With(system).Get("/system", h.ListSystem)
			r.With(read).Get("/permission/{permission}", h.ListByPermission)
			r.With(read).Get("/user/{userId}", h.UserRoles)
			r.With(manage).Post("/assign", h.Assign)
			r.With(manage).Delete("/unassign/{userId}/{roleId}", h.Unassign)
			r.With(system).Post("/default/{tenantId}", h.CreateDefaults)
			r.With(read).Get("/{id}", h.Get)
			r.With(manage).Patch("/{id}", h.Update)
			r.With(manage).Delete("/{id}", h.Delete)
		})

		r.With(require(authz.Tenant(models.PermTenantSettings))).Get("/audit-logs", cfg.Audit.List)

		r.Get("/me/permissions", cfg.Me.Permissions)
	})

	return r
}
