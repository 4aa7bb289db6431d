package config

import (
	"strings"
	"time"
)

const (
	apiURLVar         = "DOOR_API_URL"
	apiPrefixVar      = "DOOR_API_PREFIX"
	requestTimeoutVar = "DOOR_REQUEST_TIMEOUT"
)

type API struct{}

var _ APIConfig = API{}

// GetAPIURL returns the backend origin, e.g. "https://door.example.com".
// There is exactly one backend per process; deployments select it through DOOR_API_URL.
func (API) GetAPIURL() string {
	return strings.TrimRight(GetEnv(apiURLVar, "http://localhost:4300"), "/")
}

func (API) GetAPIPrefix() string {
	prefix := GetEnv(apiPrefixVar, "/api")
	if prefix != "" && prefix[0] != '/' {
		prefix = "/" + prefix
	}
	return strings.TrimRight(prefix, "/")
}

// GetBaseURL joins the origin and the API prefix.
func (a API) GetBaseURL() string {
	return a.GetAPIURL() + a.GetAPIPrefix()
}

func (API) GetRequestTimeout() time.Duration {
	return GetDuration(requestTimeoutVar, 30*time.Second)
}
