package auth

import (
	"testing"
	"time"

	"github.com/dkeye/Stage/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("", "", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier(secret, "stage", time.Hour)
	require.NoError(t, err)

	want := domain.Identity{UserID: "u1", Email: "u1@example.com", Role: domain.RoleHost}
	token, err := v.Issue(want)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVerifyExpired(t *testing.T) {
	v, err := NewVerifier(secret, "", time.Minute)
	require.NoError(t, err)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return issued }
	token, err := v.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	v.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyRejects(t *testing.T) {
	v, err := NewVerifier(secret, "stage", time.Hour)
	require.NoError(t, err)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "stage", ExpiresAt: exp}, UserID: "u1",
		})},
		{"alg none", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "stage", ExpiresAt: exp}, UserID: "u1",
		})},
		{"HS512", sign(t, jwt.SigningMethodHS512, []byte(secret), &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "stage", ExpiresAt: exp}, UserID: "u1",
		})},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(secret), &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "stage"}, UserID: "u1",
		})},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(secret), &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", ExpiresAt: exp}, UserID: "u1",
		})},
		{"no user", sign(t, jwt.SigningMethodHS256, []byte(secret), &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "stage", ExpiresAt: exp},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	v, err := NewVerifier(secret, "", time.Hour)
	require.NoError(t, err)
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sub-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Superuser",
	})

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("sub-1"), id.UserID)
	assert.Equal(t, domain.RoleViewer, id.Role)
}
