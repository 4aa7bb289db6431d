package backend

import (
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/jrsteele09/door-client/gateway"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
)

// AllowListService manages the e-mail addresses permitted to sign in. Admin only on the backend;
// other roles get ErrAuthorizationDenied.
type AllowListService struct {
	gw *gateway.Gateway
}

func NewAllowListService(gw *gateway.Gateway) *AllowListService {
	return &AllowListService{gw: gw}
}

// NormaliseEmail trims and lower-cases an address and checks it parses.
func NormaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", autherrors.Wrapf(autherrors.ErrInvalidEmail, "empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", autherrors.Wrapf(autherrors.ErrInvalidEmail, "%q", email)
	}
	return email, nil
}

func (a *AllowListService) List(ctx context.Context) ([]string, error) {
	var resp allowedEmailsResponse
	if err := sendJSON(ctx, a.gw, http.MethodGet, "/allowed-emails", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Emails, nil
}

func (a *AllowListService) Add(ctx context.Context, email string) (string, error) {
	email, err := NormaliseEmail(email)
	if err != nil {
		return "", err
	}
	if err := sendJSON(ctx, a.gw, http.MethodPost, "/allowed-emails", allowedEmailRequest{Email: email}, nil); err != nil {
		return "", err
	}
	return email, nil
}

func (a *AllowListService) Remove(ctx context.Context, email string) error {
	email, err := NormaliseEmail(email)
	if err != nil {
		return err
	}
	return sendJSON(ctx, a.gw, http.MethodDelete, "/allowed-emails/"+url.PathEscape(email), nil, nil)
}
