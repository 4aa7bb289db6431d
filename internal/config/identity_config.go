package config

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetIDToken returns a pre-obtained identity assertion, used instead of the OIDC flow when set.
func (Identity) GetIDToken() string {
	return GetEnv("DOOR_ID_TOKEN", "")
}

func (Identity) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (Identity) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Identity) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (Identity) GetOIDCRedirectURL() string {
	return GetEnv("OIDC_REDIRECT_URL", "urn:ietf:wg:oauth:2.0:oob")
}
