// Package auth resolves bearer credentials into caller identities.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/tenancy"
	"github.com/otcheredev/clinic-core/pkg/logger"
)

var (
	errMissingSubject = errors.New("token has no valid subject")
	errBadUserType    = errors.New("token has unknown user type")
	errBadTenant      = errors.New("token has malformed tenant id")
)

// Verifier turns credentials into identities. It never fails a request:
// any problem with the token leaves the caller anonymous.
type Verifier struct {
	decoder ClaimsDecoder
}

// NewVerifier creates a verifier.
func NewVerifier(decoder ClaimsDecoder) *Verifier {
	return &Verifier{decoder: decoder}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Resolve verifies raw and, on success, records the identity in rc and binds
// rc's tenant to the token's tenant claim. This is the only place a tenant
// comes from a credential.
func (v *Verifier) Resolve(ctx context.Context, raw string, rc *tenancy.RequestContext) (models.Identity, bool) {
	if raw == "" {
		return models.Identity{}, false
	}

	claims, err := v.decoder.Decode(ctx, raw)
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("credential rejected")
		return models.Identity{}, false
	}

	id, err := identityFromClaims(claims)
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("credential rejected")
		return models.Identity{}, false
	}

	rc.SetIdentity(id)
	if id.HasTenant() {
		rc.SetTenant(id.TenantID)
	}
	return id, true
}

func identityFromClaims(c *models.JWTClaims) (models.Identity, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil || userID == uuid.Nil {
		return models.Identity{}, errMissingSubject
	}
	if !c.UserType.Valid() {
		return models.Identity{}, errBadUserType
	}

	id := models.Identity{UserID: userID, Username: c.Username, Kind: c.UserType}
	if c.TenantID != "" {
		tenantID, err := uuid.Parse(c.TenantID)
		if err != nil {
			return models.Identity{}, errBadTenant
		}
		id.TenantID = tenantID
	}
	return id, nil
}
