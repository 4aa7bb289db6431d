package backend

import "time"

// TokenResponse is the body of GET /token.
type TokenResponse struct {
	// AccessToken is the bearer credential, usually a JWT carrying role and exp claims.
	AccessToken string `json:"accessToken"`

	// Role overrides the token's role claim when present.
	Role string `json:"role,omitempty"`

	// ExpiresIn is the access token lifetime in seconds. When zero the token's exp claim is used.
	ExpiresIn int `json:"expiresIn,omitempty"`
}

// User is the profile returned by /checkSession and /sessionLogin.
type User struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
	Role     string `json:"role,omitempty"`
}

type checkSessionResponse struct {
	User User `json:"user"`
}

type sessionLoginRequest struct {
	IDToken  string `json:"idToken"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// LoginResponse is the body of POST /sessionLogin. The access token is optional; without it
// the first credential comes from a renewal using the cookie the backend just set.
type LoginResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken,omitempty"`
	Role        string `json:"role,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

// Status is the door and alarm state from GET /status.
type Status struct {
	Door  string `json:"door"`
	Alarm string `json:"alarm"`
}

type ControlResult struct {
	Message string `json:"message"`
}

// AccessLog is one entry of the door access history.
type AccessLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	User      string    `json:"user"`
	Door      string    `json:"door"`
	Alarm     string    `json:"alarm"`
}

type AccessLogPage struct {
	Total int         `json:"total"`
	Logs  []AccessLog `json:"logs"`
}

type allowedEmailsResponse struct {
	Emails []string `json:"emails"`
}

type allowedEmailRequest struct {
	Email string `json:"email"`
}
