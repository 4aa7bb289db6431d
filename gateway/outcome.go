package gateway

import (
	"encoding/json"
	"net/http"
)

// Outcome is the classification of a single send.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeAuthExpired
	OutcomeAuthInvalid
	OutcomeAuthorizationDenied
	OutcomeOtherError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAuthExpired:
		return "auth_expired"
	case OutcomeAuthInvalid:
		return "auth_invalid"
	case OutcomeAuthorizationDenied:
		return "authorization_denied"
	case OutcomeOtherError:
		return "other_error"
	}
	return "unknown"
}

func classify(statusCode int, transportErr error) Outcome {
	switch {
	case transportErr != nil:
		return OutcomeOtherError
	case statusCode >= 200 && statusCode < 300:
		return OutcomeOK
	case statusCode == http.StatusUnauthorized:
		return OutcomeAuthExpired
	case statusCode == http.StatusForbidden:
		return OutcomeAuthorizationDenied
	default:
		return OutcomeOtherError
	}
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// ErrorMessage pulls a human readable message out of an error body ({"error": ...} or {"message": ...}).
func ErrorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
