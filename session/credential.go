package session

import (
	"strings"
	"time"
)

// Role is the role claim carried by a credential.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleVisitor Role = "visitor"
	RoleNone    Role = "none"
)

// ParseRole maps a backend role string onto a Role. Anything unrecognised is RoleNone.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	case RoleVisitor:
		return RoleVisitor
	default:
		return RoleNone
	}
}

// Validity describes the current credential as seen by the local clock.
type Validity int

const (
	Absent Validity = iota
	Unknown
	Valid
	Expired
)

func (v Validity) String() string {
	switch v {
	case Absent:
		return "absent"
	case Unknown:
		return "unknown"
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	}
	return "invalid"
}

// Credential is the bearer value plus its role claim. The zero value is the signed-out credential.
type Credential struct {
	Value     string     `json:"value"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil until the backend tells us otherwise
	Role      Role       `json:"role"`
}

// Present reports whether c holds a bearer value.
func (c Credential) Present() bool {
	return c.Value != ""
}

// Validity applies the local clock. skew makes a credential count as expired slightly early.
func (c Credential) Validity(now time.Time, skew time.Duration) Validity {
	if !c.Present() {
		return Absent
	}
	if c.ExpiresAt == nil {
		return Unknown
	}
	if !now.Add(skew).Before(*c.ExpiresAt) {
		return Expired
	}
	return Valid
}

// NewCredential builds a Credential from a raw access token. Role, iat and exp come from
// the token's claims when it is a JWT; explicit values from the backend override them.
func NewCredential(value string, role string, expiresIn time.Duration, now time.Time) Credential {
	cred := Credential{Value: value, IssuedAt: now, Role: RoleNone}

	if claims, ok := DecodeClaims(value); ok {
		cred.Role = claims.Role
		if !claims.IssuedAt.IsZero() {
			cred.IssuedAt = claims.IssuedAt
		}
		cred.ExpiresAt = claims.ExpiresAt
	}
	if role != "" {
		cred.Role = ParseRole(role)
	}
	if expiresIn > 0 {
		exp := now.Add(expiresIn)
		cred.ExpiresAt = &exp
	}
	return cred
}
