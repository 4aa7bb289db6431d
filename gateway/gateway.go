package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/jrsteele09/door-client/internal/metrics"
	"github.com/jrsteele09/door-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	maxBodyBytes        = 1 << 20
)

// CredentialRenewer is satisfied by refresh.Coordinator.
type CredentialRenewer interface {
	Renew(ctx context.Context) (session.Credential, error)
}

// Gateway sends every authenticated call: it attaches the bearer credential, classifies the
// response and, on an expired credential, renews once and replays once.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	renewer    CredentialRenewer
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

type Option func(*Gateway)

func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func New(baseURL string, store *session.Store, renewer CredentialRenewer, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		store:      store,
		renewer:    renewer,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Send performs req. Only an expired credential is handled here; every other failure is
// returned to the caller as is.
func (g *Gateway) Send(ctx context.Context, req *Request) (*Response, error) {
	// Known-expired locally: renew up front instead of spending the request's one replay
	if g.store.Validity() == session.Expired {
		if _, err := g.renewer.Renew(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
	}
	return g.send(ctx, req)
}

func (g *Gateway) send(ctx context.Context, req *Request) (*Response, error) {
	sent := g.store.Get()
	signOuts := g.store.SignOuts()
	resp, err := g.do(ctx, req, sent)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	outcome := classify(statusCode, err)
	g.metrics.ObserveRequest(outcome.String())

	switch outcome {
	case OutcomeOK:
		return resp, nil
	case OutcomeAuthExpired:
		return g.recoverExpired(ctx, req, sent, signOuts)
	case OutcomeAuthorizationDenied:
		return nil, autherrors.NewStatusError(statusCode, ErrorMessage(resp.Body))
	default:
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", autherrors.ErrNetwork, req, err)
		}
		return nil, autherrors.NewStatusError(statusCode, ErrorMessage(resp.Body))
	}
}

func (g *Gateway) recoverExpired(ctx context.Context, req *Request, sent session.Credential, signOuts uint64) (*Response, error) {
	if req.Retried() {
		g.metrics.ObserveRequest(OutcomeAuthInvalid.String())
		g.logger.Warn().Str("request", req.String()).Msg("credential rejected after renewal, signing out")
		g.store.Clear()
		return nil, fmt.Errorf("%w: %s rejected after renewal", autherrors.ErrAuthInvalid, req)
	}

	current := g.store.Get()
	if !current.Present() && g.store.SignOuts() != signOuts {
		// Signed out while this request was in flight, by a failed round or by the user
		g.metrics.ObserveRequest(OutcomeAuthInvalid.String())
		return nil, fmt.Errorf("%w: %s: session signed out while request was in flight", autherrors.ErrAuthInvalid, req)
	}

	// Someone else renewed while this request was in flight; replay with their credential
	if !current.Present() || current.Value == sent.Value {
		if _, err := g.renewer.Renew(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
	}

	g.metrics.ObserveReplay()
	g.logger.Debug().Str("request", req.String()).Msg("replaying request with renewed credential")
	return g.send(ctx, req.retry())
}

func (g *Gateway) do(ctx context.Context, req *Request, cred session.Credential) (*Response, error) {
	u := g.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for k, v := range req.header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	requestID := uuid.New().String()
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if cred.Present() {
		httpReq.Header.Set(headerAuthorization, "Bearer "+cred.Value)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	g.logger.Debug().
		Str("request_id", requestID).
		Str("request", req.String()).
		Int("attempt", req.attempt).
		Int("status", httpResp.StatusCode).
		Msg("gateway response")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		RequestID:  requestID,
	}, nil
}
