package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/apperr"
	"github.com/otcheredev/clinic-core/internal/database/databasetest"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRole(tenant *uuid.UUID, name string, perms ...models.Permission) *models.Role {
	return &models.Role{TenantID: tenant, Name: name, Permissions: models.NewPermissionSet(perms...)}
}

func TestRolePermissionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRoleRepository(databasetest.New(t))
	tenant := uuid.New()

	role := newRole(&tenant, "Receptionist", models.PermAppointmentCreate, models.PermPatientRead)
	require.NoError(t, repo.Create(ctx, role))

	got, err := repo.GetByID(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Permissions, got.Permissions)
	assert.True(t, got.VisibleTo(tenant))
	assert.False(t, got.VisibleTo(uuid.New()))
}

func TestRoleDuplicateNameIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRoleRepository(databasetest.New(t))
	tenant := uuid.New()

	require.NoError(t, repo.Create(ctx, newRole(&tenant, "Nutritionist")))
	assert.ErrorIs(t, repo.Create(ctx, newRole(&tenant, "Nutritionist")), apperr.ErrConflict)

	require.NoError(t, repo.Create(ctx, newRole(nil, "Auditor")))
	assert.ErrorIs(t, repo.Create(ctx, newRole(nil, "Auditor")), apperr.ErrConflict)

	found, err := repo.FindByName(ctx, &tenant, "Nutritionist")
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = repo.FindByName(ctx, nil, "Nutritionist")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRoleListVisibility(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRoleRepository(databasetest.New(t))
	a, b := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, newRole(&a, "A")))
	require.NoError(t, repo.Create(ctx, newRole(&b, "B")))
	global := newRole(nil, "Platform")
	global.IsSystemAdmin = true
	require.NoError(t, repo.Create(ctx, global))
	admin := newRole(&a, "A admin")
	admin.IsTenantAdmin = true
	require.NoError(t, repo.Create(ctx, admin))

	roles, err := repo.List(ctx, repository.RoleFilter{TenantID: a})
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	no := false
	roles, err = repo.List(ctx, repository.RoleFilter{TenantID: a, SystemAdmin: &no})
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	yes := true
	roles, err = repo.List(ctx, repository.RoleFilter{TenantID: a, TenantAdmin: &yes})
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "A admin", roles[0].Name)

	roles, err = repo.List(ctx, repository.RoleFilter{SystemAdmin: &yes})
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Nil(t, roles[0].TenantID)
}

func TestAssignmentsAndRolesForUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRoleRepository(databasetest.New(t))
	tenant, user := uuid.New(), uuid.New()

	r1 := newRole(&tenant, "R1", models.PermPatientRead)
	r2 := newRole(&tenant, "R2", models.PermAppointmentRead)
	require.NoError(t, repo.Create(ctx, r1))
	require.NoError(t, repo.Create(ctx, r2))

	require.NoError(t, repo.Assign(ctx, &models.UserRole{UserID: user, RoleID: r1.ID}))
	require.NoError(t, repo.Assign(ctx, &models.UserRole{UserID: user, RoleID: r2.ID}))
	assert.ErrorIs(t, repo.Assign(ctx, &models.UserRole{UserID: user, RoleID: r1.ID}), apperr.ErrConflict)

	roles, err := repo.RolesForUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	n, err := repo.CountAssignments(ctx, r1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, repo.SoftDelete(ctx, r2.ID))
	roles, err = repo.RolesForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, r1.ID, roles[0].ID)

	urs, err := repo.UserRoles(ctx, user)
	require.NoError(t, err)
	require.Len(t, urs, 1)
	assert.Equal(t, "R1", urs[0].Role.Name)

	require.NoError(t, repo.Unassign(ctx, user, r1.ID))
	assert.ErrorIs(t, repo.Unassign(ctx, user, r1.ID), apperr.ErrNotFound)

	roles, err = repo.RolesForUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestRoleUpdate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRoleRepository(databasetest.New(t))
	tenant := uuid.New()

	role := newRole(&tenant, "Front desk", models.PermQueueView)
	require.NoError(t, repo.Create(ctx, role))
	require.NoError(t, repo.Create(ctx, newRole(&tenant, "Taken")))

	require.NoError(t, repo.Update(ctx, role.ID, map[string]any{
		"permissions": models.NewPermissionSet(models.PermQueueManage),
	}))
	got, err := repo.GetByID(ctx, role.ID)
	require.NoError(t, err)
	assert.True(t, got.Permissions.Has(models.PermQueueManage))
	assert.False(t, got.Permissions.Has(models.PermQueueView))

	assert.ErrorIs(t, repo.Update(ctx, role.ID, map[string]any{"name": "Taken"}), apperr.ErrConflict)
	assert.ErrorIs(t, repo.Update(ctx, uuid.New(), map[string]any{"name": "x"}), apperr.ErrNotFound)
}
