package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// CodeSource sends the user to authURL and returns the authorization code and state they come
// back with. A CLI prints the URL and reads the pasted code; a desktop app runs a loopback listener.
type CodeSource func(ctx context.Context, authURL string) (code, state string, err error)

// OIDCConfig configures the authorization-code flow against an OpenID Connect provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDC obtains an ID token with the authorization-code flow (with PKCE) and verifies it.
type OIDC struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	codeSource   CodeSource
}

// NewOIDC runs provider discovery against cfg.Issuer.
func NewOIDC(ctx context.Context, cfg OIDCConfig, codeSource CodeSource) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", cfg.Issuer, err)
	}

	return NewOIDCWithVerifier(
		oauth2Config(cfg, provider.Endpoint()),
		provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		codeSource,
	), nil
}

// NewOIDCWithVerifier skips discovery; the endpoint and verifier are supplied directly.
func NewOIDCWithVerifier(cfg *oauth2.Config, verifier *oidc.IDTokenVerifier, codeSource CodeSource) *OIDC {
	return &OIDC{oauth2Config: cfg, verifier: verifier, codeSource: codeSource}
}

func oauth2Config(cfg OIDCConfig, endpoint oauth2.Endpoint) *oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

func (o *OIDC) Assertion(ctx context.Context) (Assertion, error) {
	state, err := randomString(16)
	if err != nil {
		return Assertion{}, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := o.oauth2Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	code, returnedState, err := o.codeSource(ctx, authURL)
	if err != nil {
		return Assertion{}, fmt.Errorf("obtaining authorization code: %w", err)
	}
	if returnedState != state {
		return Assertion{}, errors.New("authorization state mismatch")
	}

	token, err := o.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Assertion{}, fmt.Errorf("exchanging authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Assertion{}, errors.New("token response has no id_token")
	}

	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Assertion{}, fmt.Errorf("verifying id_token: %w", err)
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Assertion{}, fmt.Errorf("reading id_token claims: %w", err)
	}

	return Assertion{
		IDToken:  rawIDToken,
		Name:     claims.Name,
		Email:    claims.Email,
		PhotoURL: claims.Picture,
	}, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
