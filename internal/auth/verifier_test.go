package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/tenancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-with-at-least-32-bytes!"
	testIssuer = "clinic-core-test"
)

func newVerifier() (*Verifier, *Issuer) {
	return NewVerifier(NewJWTDecoder(testSecret, testIssuer)), NewIssuer(testSecret, testIssuer, time.Hour)
}

func TestResolveTenantUser(t *testing.T) {
	v, iss := newVerifier()
	want := models.Identity{UserID: uuid.New(), Username: "ana", TenantID: uuid.New(), Kind: models.UserKindTenantUser}

	tok, err := iss.Issue(want)
	require.NoError(t, err)

	rc := tenancy.New()
	got, ok := v.Resolve(context.Background(), tok, rc)
	require.True(t, ok)
	assert.Equal(t, want, got)

	tenant, ok := rc.Tenant()
	require.True(t, ok)
	assert.Equal(t, want.TenantID, tenant)

	stored, ok := rc.Identity()
	require.True(t, ok)
	assert.Equal(t, want, stored)
}

func TestResolveSystemAdminWithoutTenant(t *testing.T) {
	v, iss := newVerifier()
	admin := models.Identity{UserID: uuid.New(), Username: "root", Kind: models.UserKindSystemAdmin}

	tok, err := iss.Issue(admin)
	require.NoError(t, err)

	rc := tenancy.New()
	got, ok := v.Resolve(context.Background(), tok, rc)
	require.True(t, ok)
	assert.True(t, got.IsSystemAdmin())
	assert.False(t, rc.HasTenant())
}

func TestResolveRejectsBadCredentials(t *testing.T) {
	v, _ := newVerifier()
	user := models.Identity{UserID: uuid.New(), TenantID: uuid.New(), Kind: models.UserKindTenantUser}

	expired := NewIssuer(testSecret, testIssuer, -time.Hour)
	expiredTok, err := expired.Issue(user)
	require.NoError(t, err)

	wrongKey := NewIssuer("another-secret-with-at-least-32-bytes", testIssuer, time.Hour)
	wrongKeyTok, err := wrongKey.Issue(user)
	require.NoError(t, err)

	wrongIss := NewIssuer(testSecret, "someone-else", time.Hour)
	wrongIssTok, err := wrongIss.Issue(user)
	require.NoError(t, err)

	noneTok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": user.UserID.String(), "userType": "tenant_user", "exp": time.Now().Add(time.Hour).Unix(), "iss": testIssuer,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "not-a-uuid", "userType": "tenant_user", "exp": time.Now().Add(time.Hour).Unix(), "iss": testIssuer,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badKind, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.UserID.String(), "userType": "superuser", "exp": time.Now().Add(time.Hour).Unix(), "iss": testIssuer,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badTenant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.UserID.String(), "userType": "tenant_user", "tenantId": "clinic-1",
		"exp": time.Now().Add(time.Hour).Unix(), "iss": testIssuer,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired", expiredTok},
		{"wrong key", wrongKeyTok},
		{"wrong issuer", wrongIssTok},
		{"alg none", noneTok},
		{"bad subject", badSubject},
		{"bad user type", badKind},
		{"bad tenant", badTenant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := tenancy.New()
			_, ok := v.Resolve(context.Background(), tt.token, rc)
			assert.False(t, ok)
			assert.False(t, rc.HasTenant())
			_, hasID := rc.Identity()
			assert.False(t, hasID)
		})
	}
}

func TestResolveKeepsFirstTenant(t *testing.T) {
	v, iss := newVerifier()
	user := models.Identity{UserID: uuid.New(), TenantID: uuid.New(), Kind: models.UserKindTenantOwner}
	tok, err := iss.Issue(user)
	require.NoError(t, err)

	rc := tenancy.New()
	preset := uuid.New()
	rc.SetTenant(preset)

	_, ok := v.Resolve(context.Background(), tok, rc)
	require.True(t, ok)
	tenant, _ := rc.Tenant()
	assert.Equal(t, preset, tenant)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}
