package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the parts of an access token the client cares about.
type Claims struct {
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// DecodeClaims reads claims from a JWT access token without verifying the signature.
// The client never holds the signing key; the backend remains the authority on validity.
// ok is false for opaque (non-JWT) tokens.
func DecodeClaims(rawToken string) (Claims, bool) {
	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, false
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, false
	}

	claims := Claims{Role: RoleNone}
	claims.Subject, _ = mapClaims.GetSubject()

	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = ParseRole(role)
	} else if roles, ok := mapClaims["roles"].([]any); ok && len(roles) > 0 {
		// First recognised role wins
		for _, r := range roles {
			if s, ok := r.(string); ok && ParseRole(s) != RoleNone {
				claims.Role = ParseRole(s)
				break
			}
		}
	}

	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	return claims, true
}
