package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/models"
)

const (
	// DefaultLeeway tolerates clock skew between issuer and verifier.
	DefaultLeeway = 30 * time.Second
)

var ErrInvalidToken = errors.New("invalid token")

// ClaimsDecoder turns a raw bearer token into verified claims.
type ClaimsDecoder interface {
	Decode(ctx context.Context, raw string) (*models.JWTClaims, error)
}

// JWTDecoder verifies HS256 tokens signed with a shared secret.
type JWTDecoder struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTDecoder creates a decoder. An empty issuer skips the iss check.
func NewJWTDecoder(secret, issuer string) *JWTDecoder {
	return &JWTDecoder{secret: []byte(secret), issuer: issuer, leeway: DefaultLeeway}
}

// Decode implements ClaimsDecoder.
func (d *JWTDecoder) Decode(_ context.Context, raw string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(d.leeway),
		jwt.WithExpirationRequired(),
	}
	if d.issuer != "" {
		opts = append(opts, jwt.WithIssuer(d.issuer))
	}

	claims := &models.JWTClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return d.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issuer mints access tokens. Used by the admin CLI and tests; login lives elsewhere.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer.
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for id.
func (i *Issuer) Issue(id models.Identity) (string, error) {
	now := i.now().UTC()
	claims := models.JWTClaims{
		Username: id.Username,
		UserType: id.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	if id.HasTenant() {
		claims.TenantID = id.TenantID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
