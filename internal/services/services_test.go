package services_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/cache"
	"github.com/otcheredev/clinic-core/internal/database/databasetest"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/otcheredev/clinic-core/internal/scheduling"
	"github.com/otcheredev/clinic-core/internal/services"
	"gorm.io/gorm"
)

type env struct {
	db           *gorm.DB
	appointments *services.AppointmentService
	roles        *services.RoleService
	roleRepo     *repository.RoleRepository
	userRepo     *repository.UserRepository
	auditRepo    *repository.AuditRepository
	resolver     *authz.Resolver
}

func newEnv(t *testing.T, withCache bool) *env {
	t.Helper()
	db := databasetest.New(t)

	apptRepo := repository.NewAppointmentRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var c cache.Cache
	if withCache {
		c = cache.NewMemoryCache(time.Minute)
	}
	resolver := authz.NewResolver(roleRepo, c, time.Minute, nil)

	return &env{
		db:           db,
		appointments: services.NewAppointmentService(apptRepo, scheduling.NewDetector(apptRepo), auditRepo, nil),
		roles:        services.NewRoleService(roleRepo, userRepo, resolver, auditRepo),
		roleRepo:     roleRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		resolver:     resolver,
	}
}

func tenantUser(tenant uuid.UUID) models.Identity {
	return models.Identity{UserID: uuid.New(), Username: "staff", TenantID: tenant, Kind: models.UserKindTenantUser}
}

func sysAdmin() models.Identity {
	return models.Identity{UserID: uuid.New(), Username: "root", Kind: models.UserKindSystemAdmin}
}
