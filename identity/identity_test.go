package identity_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/door-client/identity"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://idp.example.com"
	testClientID = "door-client"
	testCode     = "auth-code-1"
)

func TestStatic(t *testing.T) {
	a, err := identity.Static{IDToken: "id-token", Name: "Jane"}.Assertion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "id-token", a.IDToken)
	require.Equal(t, "Jane", a.Name)

	_, err = identity.Static{}.Assertion(context.Background())
	require.ErrorIs(t, err, identity.ErrNoAssertion)
}

func newIdentityProvider(t *testing.T) (*httptest.Server, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != testCode || r.Form.Get("code_verifier") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		now := time.Now()
		idToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
			"iss":     testIssuer,
			"aud":     testClientID,
			"sub":     "user-1",
			"email":   "jane@example.com",
			"name":    "Jane Doe",
			"picture": "https://example.com/jane.png",
			"iat":     now.Unix(),
			"exp":     now.Add(time.Hour).Unix(),
		}).SignedString(key)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "idp-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, key
}

func newTestOIDC(srv *httptest.Server, key *rsa.PrivateKey, codeSource identity.CodeSource) *identity.OIDC {
	cfg := &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/authorize",
			TokenURL: srv.URL + "/token",
		},
		Scopes: []string{oidc.ScopeOpenID, "email"},
	}
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})
	return identity.NewOIDCWithVerifier(cfg, verifier, codeSource)
}

func TestOIDCAssertion(t *testing.T) {
	srv, key := newIdentityProvider(t)

	provider := newTestOIDC(srv, key, func(_ context.Context, authURL string) (string, string, error) {
		u, err := url.Parse(authURL)
		if err != nil {
			return "", "", err
		}
		q := u.Query()
		require.Equal(t, "S256", q.Get("code_challenge_method"))
		require.Equal(t, testClientID, q.Get("client_id"))
		return testCode, q.Get("state"), nil
	})

	a, err := provider.Assertion(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, a.IDToken)
	require.Equal(t, "jane@example.com", a.Email)
	require.Equal(t, "Jane Doe", a.Name)
	require.Equal(t, "https://example.com/jane.png", a.PhotoURL)
}

func TestOIDCStateMismatch(t *testing.T) {
	srv, key := newIdentityProvider(t)
	provider := newTestOIDC(srv, key, func(context.Context, string) (string, string, error) {
		return testCode, "forged", nil
	})

	_, err := provider.Assertion(context.Background())
	require.ErrorContains(t, err, "state mismatch")
}

func TestOIDCRejectsForeignSignature(t *testing.T) {
	srv, _ := newIdentityProvider(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	provider := newTestOIDC(srv, otherKey, func(_ context.Context, authURL string) (string, string, error) {
		u, _ := url.Parse(authURL)
		return testCode, u.Query().Get("state"), nil
	})

	_, err = provider.Assertion(context.Background())
	require.ErrorContains(t, err, "verifying id_token")
}
