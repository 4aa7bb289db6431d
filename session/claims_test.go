package session_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/door-client/session"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestDecodeClaims(t *testing.T) {
	raw := signedToken(t, jwtlib.MapClaims{
		"sub":  "user-1",
		"role": "admin",
		"iat":  testNow.Unix(),
		"exp":  testNow.Add(15 * time.Minute).Unix(),
	})

	claims, ok := session.DecodeClaims(raw)
	require.True(t, ok)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, session.RoleAdmin, claims.Role)
	require.True(t, claims.IssuedAt.Equal(testNow))
	require.NotNil(t, claims.ExpiresAt)
	require.True(t, claims.ExpiresAt.Equal(testNow.Add(15*time.Minute)))
}

func TestDecodeClaimsRolesArray(t *testing.T) {
	raw := signedToken(t, jwtlib.MapClaims{"roles": []string{"auditor", "user"}})

	claims, ok := session.DecodeClaims(raw)
	require.True(t, ok)
	require.Equal(t, session.RoleUser, claims.Role)
	require.Nil(t, claims.ExpiresAt)
}

func TestDecodeClaimsOpaqueToken(t *testing.T) {
	_, ok := session.DecodeClaims("not-a-jwt")
	require.False(t, ok)
}

func TestNewCredential(t *testing.T) {
	raw := signedToken(t, jwtlib.MapClaims{
		"role": "visitor",
		"exp":  testNow.Add(time.Hour).Unix(),
	})

	cred := session.NewCredential(raw, "", 0, testNow)
	require.Equal(t, session.RoleVisitor, cred.Role)
	require.Equal(t, session.Valid, cred.Validity(testNow, 0))

	// Explicit response fields override the claims
	cred = session.NewCredential(raw, "admin", time.Minute, testNow)
	require.Equal(t, session.RoleAdmin, cred.Role)
	require.True(t, cred.ExpiresAt.Equal(testNow.Add(time.Minute)))

	cred = session.NewCredential("opaque", "", 0, testNow)
	require.Equal(t, session.RoleNone, cred.Role)
	require.Equal(t, session.Unknown, cred.Validity(testNow, 0))
}

func TestParseRole(t *testing.T) {
	require.Equal(t, session.RoleAdmin, session.ParseRole(" Admin "))
	require.Equal(t, session.RoleUser, session.ParseRole("user"))
	require.Equal(t, session.RoleVisitor, session.ParseRole("visitor"))
	require.Equal(t, session.RoleNone, session.ParseRole("root"))
	require.Equal(t, session.RoleNone, session.ParseRole(""))
}
