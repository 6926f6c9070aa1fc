// Package jwt resolves bearer tokens into caller identities.
package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

// Claims carries the caller role next to the registered claims; the subject
// is the identity id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Provider struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewProvider(signingKey, issuer string) (*Provider, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, domain.NewError(domain.ErrValidation, "new jwt provider", "signing key is required")
	}
	return &Provider{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}, nil
}

func (p *Provider) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	const op = "authenticate"
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.NewError(domain.ErrUnauthorized, op, "missing bearer token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return p.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.NewError(domain.ErrUnauthorized, op, "token has expired")
		}
		return domain.Identity{}, domain.NewError(domain.ErrUnauthorized, op, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, domain.NewError(domain.ErrUnauthorized, op, "invalid token claims")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, domain.NewError(domain.ErrUnauthorized, op, "token carries an unknown role")
	}
	identity := domain.Identity{ID: claims.Subject, Role: role}
	if !identity.Valid() {
		return domain.Identity{}, domain.NewError(domain.ErrUnauthorized, op, "token has no subject")
	}
	return identity, nil
}

// Issue signs a token for identity. Used by tests and local tooling; the
// service itself never mints credentials.
func (p *Provider) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(p.signingKey)
}
