package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for the door client
var (
	// Session errors
	ErrAuthExpired         = errors.New("access credential expired")
	ErrAuthInvalid         = errors.New("session is no longer valid, sign in again")
	ErrAuthorizationDenied = errors.New("authorization denied")

	// Transport errors
	ErrNetwork = errors.New("network error")
	ErrServer  = errors.New("server error")
	ErrRequest = errors.New("request rejected")

	// Renewal errors
	ErrRefreshFailed     = errors.New("credential renewal failed")
	ErrRefreshTimeout    = errors.New("credential renewal timed out")
	ErrRefreshInProgress = errors.New("credential renewal already in progress")
	ErrInvalidTransition = errors.New("invalid refresh state transition")
	ErrSignedOut         = errors.New("session signed out during renewal")

	// Validation errors
	ErrInvalidAction = errors.New("invalid door action")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %s", e.Err, e.StatusCode, msg)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, msg)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError classifies an HTTP status into the taxonomy.
func NewStatusError(statusCode int, message string) *StatusError {
	var kind error
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = ErrAuthExpired
	case statusCode == http.StatusForbidden:
		kind = ErrAuthorizationDenied
	case statusCode >= 500:
		kind = ErrServer
	default:
		kind = ErrRequest
	}
	return &StatusError{StatusCode: statusCode, Message: message, Err: kind}
}

// Kind returns the taxonomy sentinel err belongs to, or nil when it is not one of ours.
func Kind(err error) error {
	for _, k := range []error{
		ErrAuthInvalid,
		ErrAuthExpired,
		ErrAuthorizationDenied,
		ErrNetwork,
		ErrServer,
		ErrRequest,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
