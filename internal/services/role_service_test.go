package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, e *env, tenant *uuid.UUID) *models.User {
	t.Helper()
	u := &models.User{Username: "u-" + uuid.NewString()[:8], TenantID: tenant, Kind: models.UserKindTenantUser, IsActive: true}
	require.NoError(t, e.userRepo.Create(context.Background(), u))
	return u
}

func TestRoleCreateNameUniquePerTenant(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)
	a, b := uuid.New(), uuid.New()

	_, err := e.roles.Create(ctx, a, tenantUser(a), &models.RoleRequest{Name: "Dietitian"})
	require.NoError(t, err)

	_, err = e.roles.Create(ctx, a, tenantUser(a), &models.RoleRequest{Name: " Dietitian "})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = e.roles.Create(ctx, b, tenantUser(b), &models.RoleRequest{Name: "Dietitian"})
	assert.NoError(t, err)

	_, err = e.roles.Create(ctx, a, tenantUser(a), &models.RoleRequest{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRoleCreateScope(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)

	_, err := e.roles.Create(ctx, uuid.Nil, tenantUser(uuid.New()), &models.RoleRequest{Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrTenantRequired)

	global, err := e.roles.Create(ctx, uuid.Nil, sysAdmin(), &models.RoleRequest{Name: "Platform auditor"})
	require.NoError(t, err)
	assert.Nil(t, global.TenantID)

	tenant := uuid.New()
	_, err = e.roles.Create(ctx, tenant, tenantUser(tenant), &models.RoleRequest{
		Name:        "Escalated",
		Permissions: models.NewPermissionSet(models.PermSystemAdmin),
	})
	assert.ErrorIs(t, err, apperr.ErrInsufficientPermissions)
}

func TestRoleVisibility(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)
	a, b := uuid.New(), uuid.New()

	roleA, err := e.roles.Create(ctx, a, tenantUser(a), &models.RoleRequest{Name: "A only"})
	require.NoError(t, err)
	global, err := e.roles.Create(ctx, uuid.Nil, sysAdmin(), &models.RoleRequest{Name: "Shared"})
	require.NoError(t, err)

	_, err = e.roles.Get(ctx, b, roleA.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := e.roles.Get(ctx, b, global.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shared", got.Name)

	roles, err := e.roles.List(ctx, b)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, global.ID, roles[0].ID)

	// tenants cannot modify global roles
	name := "Renamed"
	_, err = e.roles.Update(ctx, b, tenantUser(b), global.ID, &models.RoleUpdateRequest{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrInsufficientPermissions)
	assert.ErrorIs(t, e.roles.Delete(ctx, b, tenantUser(b), global.ID), apperr.ErrInsufficientPermissions)
}

func TestAssignKeepsUsersInTenant(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)
	a, b := uuid.New(), uuid.New()
	actor := tenantUser(a)

	role, err := e.roles.Create(ctx, a, actor, &models.RoleRequest{Name: "Front desk", Permissions: models.NewPermissionSet(models.PermQueueView)})
	require.NoError(t, err)
	outsider := seedUser(t, e, &b)
	insider := seedUser(t, e, &a)

	_, err = e.roles.Assign(ctx, a, actor, &models.AssignRoleRequest{UserID: outsider.ID, RoleID: role.ID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ur, err := e.roles.Assign(ctx, a, actor, &models.AssignRoleRequest{UserID: insider.ID, RoleID: role.ID})
	require.NoError(t, err)
	assert.Equal(t, "Front desk", ur.Role.Name)

	_, err = e.roles.Assign(ctx, a, actor, &models.AssignRoleRequest{UserID: insider.ID, RoleID: role.ID})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// a system admin acting without a tenant still cannot cross tenants
	_, err = e.roles.Assign(ctx, uuid.Nil, sysAdmin(), &models.AssignRoleRequest{UserID: outsider.ID, RoleID: role.ID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	urs, err := e.roles.UserRoles(ctx, a, insider.ID)
	require.NoError(t, err)
	assert.Len(t, urs, 1)

	_, err = e.roles.UserRoles(ctx, a, outsider.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOnlySystemAdminsAssignSystemRoles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)
	tenant := uuid.New()
	user := seedUser(t, e, &tenant)

	root := &models.Role{Name: "Root", IsSystemAdmin: true}
	require.NoError(t, e.roleRepo.Create(ctx, root))

	_, err := e.roles.Assign(ctx, tenant, tenantUser(tenant), &models.AssignRoleRequest{UserID: user.ID, RoleID: root.ID})
	assert.ErrorIs(t, err, apperr.ErrInsufficientPermissions)

	_, err = e.roles.Assign(ctx, tenant, sysAdmin(), &models.AssignRoleRequest{UserID: user.ID, RoleID: root.ID})
	assert.NoError(t, err)

	system, err := e.roles.ListSystemRoles(ctx)
	require.NoError(t, err)
	require.Len(t, system, 1)

	byPerm, err := e.roles.ListByPermission(ctx, tenant, models.PermReportsExport)
	require.NoError(t, err)
	require.Len(t, byPerm, 1)
	assert.Equal(t, root.ID, byPerm[0].ID)
}

func TestDeleteRefusedWhileAssigned(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)
	tenant := uuid.New()
	actor := tenantUser(tenant)
	user := seedUser(t, e, &tenant)

	role, err := e.roles.Create(ctx, tenant, actor, &models.RoleRequest{Name: "Temp"})
	require.NoError(t, err)
	_, err = e.roles.Assign(ctx, tenant, actor, &models.AssignRoleRequest{UserID: user.ID, RoleID: role.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, e.roles.Delete(ctx, tenant, actor, role.ID), apperr.ErrConflict)

	require.NoError(t, e.roles.Unassign(ctx, tenant, actor, user.ID, role.ID))
	assert.ErrorIs(t, e.roles.Unassign(ctx, tenant, actor, user.ID, role.ID), apperr.ErrNotFound)

	require.NoError(t, e.roles.Delete(ctx, tenant, actor, role.ID))
	_, err = e.roles.Get(ctx, tenant, role.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRoleMutationsInvalidateCachedPermissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, true)
	tenant := uuid.New()
	actor := tenantUser(tenant)
	user := seedUser(t, e, &tenant)

	role, err := e.roles.Create(ctx, tenant, actor, &models.RoleRequest{Name: "Reader", Permissions: models.NewPermissionSet(models.PermPatientRead)})
	require.NoError(t, err)

	perms, err := e.resolver.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	_, err = e.roles.Assign(ctx, tenant, actor, &models.AssignRoleRequest{UserID: user.ID, RoleID: role.ID})
	require.NoError(t, err)
	perms, err = e.resolver.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, perms.Has(models.PermPatientRead))

	updated := models.NewPermissionSet(models.PermPatientUpdate)
	_, err = e.roles.Update(ctx, tenant, actor, role.ID, &models.RoleUpdateRequest{Permissions: &updated})
	require.NoError(t, err)
	perms, err = e.resolver.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, perms.Has(models.PermPatientRead))
	assert.True(t, perms.Has(models.PermPatientUpdate))

	require.NoError(t, e.roles.Unassign(ctx, tenant, actor, user.ID, role.ID))
	perms, err = e.resolver.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestCreateDefaultRolesIsRepeatable(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, false)
	tenant := uuid.New()

	first, err := e.roles.CreateDefaultRoles(ctx, tenant, sysAdmin())
	require.NoError(t, err)
	require.Len(t, first, len(models.DefaultRoles))

	second, err := e.roles.CreateDefaultRoles(ctx, tenant, sysAdmin())
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	admins, err := e.roles.ListTenantAdminRoles(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "Clinic Admin", admins[0].Name)

	_, err = e.roles.CreateDefaultRoles(ctx, uuid.Nil, sysAdmin())
	assert.ErrorIs(t, err, apperr.ErrTenantRequired)
}
