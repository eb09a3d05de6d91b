package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/auth"
	"github.com/otcheredev/clinic-core/internal/config"
	"github.com/otcheredev/clinic-core/internal/database/databasetest"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// useTestDB points openDB at an in-memory database that lives for the whole test.
func useTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := databasetest.New(t)
	prev := openDB
	openDB = func(*config.Config) (*gorm.DB, func() error, error) {
		return db, func() error { return nil }, nil
	}
	t.Cleanup(func() { openDB = prev })
	return db
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_ISSUER", "clinic-core-test")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenIssue(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()

	out, err := execute(t, "token", "issue", "--user", userID.String(), "--tenant", tenantID.String(), "--username", "ana")
	require.NoError(t, err)

	claims, err := auth.NewJWTDecoder(testSecret, "clinic-core-test").Decode(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, models.UserKindTenantUser, claims.UserType)
}

func TestTokenIssueValidatesFlags(t *testing.T) {
	_, err := execute(t, "token", "issue", "--user", uuid.NewString())
	assert.ErrorContains(t, err, "--tenant is required")

	_, err = execute(t, "token", "issue", "--user", uuid.NewString(), "--type", "root")
	assert.Error(t, err)

	_, err = execute(t, "token", "issue", "--user", uuid.NewString(), "--type", "system_admin")
	assert.NoError(t, err)
}

func TestRolesDefaults(t *testing.T) {
	db := useTestDB(t)
	tenantID := uuid.New()

	out, err := execute(t, "roles", "defaults", "--tenant", tenantID.String())
	require.NoError(t, err)
	for _, def := range models.DefaultRoles {
		assert.Contains(t, out, def.Name)
	}

	_, err = execute(t, "roles", "defaults", "--tenant", tenantID.String())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Where("tenant_id = ?", tenantID).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultRoles)), count)
}

func TestUsersAdd(t *testing.T) {
	db := useTestDB(t)
	tenantID := uuid.New()

	out, err := execute(t, "users", "add", "--username", "ana", "--tenant", tenantID.String())
	require.NoError(t, err)

	id, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	user, err := repository.NewUserRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, tenantID, *user.TenantID)

	_, err = execute(t, "users", "add", "--username", "ana", "--tenant", tenantID.String())
	assert.Error(t, err, "usernames are unique")

	_, err = execute(t, "users", "add", "--username", "bo")
	assert.ErrorContains(t, err, "--tenant is required")
}
