package config

import "time"

const (
	renewTimeoutVar = "DOOR_RENEW_TIMEOUT"
	clockSkewVar    = "DOOR_CLOCK_SKEW"
)

type Session struct{}

var _ SessionConfig = Session{}

// GetRenewTimeout bounds a single renewal round. A zero value is replaced by the default,
// the renewal call is never allowed to hang.
func (Session) GetRenewTimeout() time.Duration {
	d := GetDuration(renewTimeoutVar, 10*time.Second)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

func (Session) GetClockSkew() time.Duration {
	return GetDuration(clockSkewVar, 5*time.Second)
}
