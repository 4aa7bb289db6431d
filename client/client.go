package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/jrsteele09/door-client/backend"
	"github.com/jrsteele09/door-client/gateway"
	"github.com/jrsteele09/door-client/identity"
	"github.com/jrsteele09/door-client/internal/config"
	"github.com/jrsteele09/door-client/internal/metrics"
	"github.com/jrsteele09/door-client/refresh"
	"github.com/jrsteele09/door-client/route"
	"github.com/jrsteele09/door-client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client wires one session: the store, the renewal coordinator, the gateway, the route guard
// and the backend services that use them.
type Client struct {
	store       *session.Store
	coordinator *refresh.Coordinator
	gateway     *gateway.Gateway
	guard       *route.Guard

	Session   *backend.SessionService
	Device    *backend.DeviceService
	AccessLog *backend.AccessLogService
	AllowList *backend.AllowListService

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	registerer prometheus.Registerer
	logger     zerolog.Logger
	storeOpts  []session.StoreOption
	guardOpts  []route.GuardOption
	baseURL    string
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithRegisterer registers the client's Prometheus collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithStoreOptions(opts ...session.StoreOption) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

func WithGuardOptions(opts ...route.GuardOption) Option {
	return func(o *options) {
		o.guardOpts = append(o.guardOpts, opts...)
	}
}

// WithBaseURL overrides the configured backend address.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

func New(cfg config.Config, opts ...Option) (*Client, error) {
	o := options{
		logger:  log.Logger,
		baseURL: cfg.GetBaseURL(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: cfg.GetRequestTimeout()}
	}

	m := metrics.New(o.registerer)

	storeOpts := append([]session.StoreOption{
		session.WithClockSkew(cfg.GetClockSkew()),
		session.WithLogger(o.logger),
	}, o.storeOpts...)
	store := session.NewStore(storeOpts...)

	sessions := backend.NewSessionService(o.baseURL, httpClient, nil)
	coordinator := refresh.NewCoordinator(store, sessions,
		refresh.WithTimeout(cfg.GetRenewTimeout()),
		refresh.WithMetrics(m),
		refresh.WithLogger(o.logger),
	)
	gw := gateway.New(o.baseURL, store, coordinator,
		gateway.WithHTTPClient(httpClient),
		gateway.WithMetrics(m),
		gateway.WithLogger(o.logger),
	)
	sessions.SetGateway(gw)

	return &Client{
		store:       store,
		coordinator: coordinator,
		gateway:     gw,
		guard:       route.NewGuard(store, o.guardOpts...),
		Session:     sessions,
		Device:      backend.NewDeviceService(gw),
		AccessLog:   backend.NewAccessLogService(gw),
		AllowList:   backend.NewAllowListService(gw),
		metrics:     m,
		logger:      o.logger,
	}, nil
}

func (c *Client) Store() *session.Store { return c.store }
func (c *Client) Gateway() *gateway.Gateway { return c.gateway }
func (c *Client) Guard() *route.Guard { return c.guard }
func (c *Client) Coordinator() *refresh.Coordinator { return c.coordinator }
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

// Login obtains an identity assertion, opens a backend session with it and installs the
// first credential. When /sessionLogin returns no access token, one renewal fetches it.
func (c *Client) Login(ctx context.Context, provider identity.Provider) (*backend.User, error) {
	assertion, err := provider.Assertion(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}

	resp, cred, err := c.Session.Login(ctx, assertion)
	if err != nil {
		return nil, err
	}

	if cred.Present() {
		c.store.Set(cred)
	} else if cred, err = c.coordinator.Renew(ctx); err != nil {
		return nil, fmt.Errorf("fetching first credential: %w", err)
	}

	c.logger.Info().Str("email", resp.User.Email).Str("role", string(cred.Role)).Msg("signed in")
	return &resp.User, nil
}

// Logout ends the backend session and always clears the local one, even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Session.Logout(ctx)
	c.store.Clear()
	if err != nil {
		c.logger.Warn().Err(err).Msg("backend logout failed, local session cleared")
		return fmt.Errorf("logout: %w", err)
	}
	c.logger.Info().Msg("signed out")
	return nil
}

// Navigate decides whether the current session may enter path.
func (c *Client) Navigate(path string) route.Decision {
	d := c.guard.Check(path)
	c.logger.Debug().Str("route", path).Stringer("decision", d).Msg("navigation")
	return d
}
