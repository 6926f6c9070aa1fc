package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider("test-signing-key", "document-requests")
	require.NoError(t, err)
	return p
}

func TestAuthenticateRoundTrip(t *testing.T) {
	p := newProvider(t)
	token, err := p.Issue(domain.Identity{ID: "ap-1", Role: domain.RoleApprover}, time.Hour)
	require.NoError(t, err)

	identity, err := p.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "ap-1", Role: domain.RoleApprover}, identity)
}

func TestAuthenticateRejects(t *testing.T) {
	p := newProvider(t)
	other, err := NewProvider("another-key", "document-requests")
	require.NoError(t, err)
	foreignIssuer, err := NewProvider("test-signing-key", "someone-else")
	require.NoError(t, err)

	expired, err := p.Issue(domain.Identity{ID: "student-1", Role: domain.RoleRequester}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := other.Issue(domain.Identity{ID: "student-1", Role: domain.RoleRequester}, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := foreignIssuer.Issue(domain.Identity{ID: "student-1", Role: domain.RoleRequester}, time.Hour)
	require.NoError(t, err)
	badRole, err := p.Issue(domain.Identity{ID: "student-1", Role: domain.Role("janitor")}, time.Hour)
	require.NoError(t, err)
	noSubject, err := p.Issue(domain.Identity{Role: domain.RoleRequester}, time.Hour)
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: "administrator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			Issuer:    "document-requests",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"expired":      expired,
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"unknown role": badRole,
		"no subject":   noSubject,
		"alg none":     unsigned,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Authenticate(context.Background(), token)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.ErrUnauthorized), "got %v", err)
		})
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	_, err := NewProvider("  ", "issuer")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrValidation))
}
