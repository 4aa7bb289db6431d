package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/door-client/gateway"
	"github.com/jrsteele09/door-client/identity"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/jrsteele09/door-client/session"
)

// Backend session endpoints
const (
	PathCheckSession = "/checkSession"
	PathToken        = "/token"
	PathSessionLogin = "/sessionLogin"
	PathLogout       = "/logout"
)

// SessionService talks to the Backend Session Service. Renew and Login go straight to the
// backend (the renewal cookie rides in the client's cookie jar); CheckSession and Logout are
// ordinary authenticated calls through the gateway.
type SessionService struct {
	baseURL    string
	httpClient *http.Client
	gw         *gateway.Gateway
	nowFunc    func() time.Time
}

func NewSessionService(baseURL string, httpClient *http.Client, gw *gateway.Gateway) *SessionService {
	return &SessionService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		gw:         gw,
		nowFunc:    time.Now,
	}
}

// SetGateway attaches the gateway once it exists. The gateway needs a renewer and the renewer
// is this service, so one side has to be wired late.
func (s *SessionService) SetGateway(gw *gateway.Gateway) {
	s.gw = gw
}

// Renew calls GET /token and implements refresh.Renewer.
func (s *SessionService) Renew(ctx context.Context) (session.Credential, error) {
	var resp TokenResponse
	if err := directJSON(ctx, s.httpClient, http.MethodGet, s.baseURL+PathToken, nil, &resp); err != nil {
		var statusErr *autherrors.StatusError
		if autherrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			// The renewal cookie was rejected, the session is over
			statusErr.Err = autherrors.ErrRefreshFailed
			return session.Credential{}, statusErr
		}
		return session.Credential{}, fmt.Errorf("%w: %w", autherrors.ErrRefreshFailed, err)
	}
	if resp.AccessToken == "" {
		return session.Credential{}, autherrors.Wrapf(autherrors.ErrRefreshFailed, "token response without accessToken")
	}
	return session.NewCredential(resp.AccessToken, resp.Role, time.Duration(resp.ExpiresIn)*time.Second, s.nowFunc()), nil
}

// Login exchanges an identity assertion for a backend session. The returned credential is
// absent when the backend only set the renewal cookie.
func (s *SessionService) Login(ctx context.Context, assertion identity.Assertion) (*LoginResponse, session.Credential, error) {
	var resp LoginResponse
	req := sessionLoginRequest{
		IDToken:  assertion.IDToken,
		Name:     assertion.Name,
		PhotoURL: assertion.PhotoURL,
	}
	if err := directJSON(ctx, s.httpClient, http.MethodPost, s.baseURL+PathSessionLogin, req, &resp); err != nil {
		if autherrors.Is(err, autherrors.ErrAuthExpired) {
			// A rejected assertion is not something a renewal can fix
			return nil, session.Credential{}, fmt.Errorf("%w: %w", autherrors.ErrAuthInvalid, err)
		}
		return nil, session.Credential{}, autherrors.Wrapf(err, "session login")
	}

	var cred session.Credential
	if resp.AccessToken != "" {
		role := resp.Role
		if role == "" {
			role = resp.User.Role
		}
		cred = session.NewCredential(resp.AccessToken, role, time.Duration(resp.ExpiresIn)*time.Second, s.nowFunc())
	}
	return &resp, cred, nil
}

func (s *SessionService) CheckSession(ctx context.Context) (*User, error) {
	var resp checkSessionResponse
	if err := sendJSON(ctx, s.gw, http.MethodGet, PathCheckSession, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout invalidates the server-side session. Callers clear the local store afterwards.
func (s *SessionService) Logout(ctx context.Context) error {
	return sendJSON(ctx, s.gw, http.MethodPost, PathLogout, struct{}{}, nil)
}
