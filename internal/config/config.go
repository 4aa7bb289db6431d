package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	IdentityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetAPIURL() string
	GetAPIPrefix() string
	GetBaseURL() string
	GetRequestTimeout() time.Duration
}

type SessionConfig interface {
	GetRenewTimeout() time.Duration
	GetClockSkew() time.Duration
}

type IdentityConfig interface {
	GetIDToken() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCRedirectURL() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Identity
}

func New() Config {
	return mainConfig{}
}
