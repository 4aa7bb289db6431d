package identity

import (
	"context"
	"errors"
)

var ErrNoAssertion = errors.New("no identity assertion available")

// Assertion is the opaque proof of identity handed to POST /sessionLogin.
type Assertion struct {
	IDToken  string
	Name     string
	Email    string
	PhotoURL string
}

// Provider obtains an identity assertion from an external identity provider.
type Provider interface {
	Assertion(ctx context.Context) (Assertion, error)
}

// Static returns a fixed, pre-obtained assertion.
type Static Assertion

func (s Static) Assertion(context.Context) (Assertion, error) {
	if s.IDToken == "" {
		return Assertion{}, ErrNoAssertion
	}
	return Assertion(s), nil
}
