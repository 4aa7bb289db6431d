package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/jrsteele09/door-client/internal/metrics"
	"github.com/jrsteele09/door-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	flightKey           = "renew"
	defaultRenewTimeout = 10 * time.Second
)

// Renewer exchanges the renewal cookie for a fresh credential (GET /token).
type Renewer interface {
	Renew(ctx context.Context) (session.Credential, error)
}

// RefreshError is delivered to every caller attached to a failed renewal round.
// It matches both ErrAuthInvalid and the underlying cause.
type RefreshError struct {
	Round uint64
	Err   error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("renewal round %d: %v", e.Round, e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{autherrors.ErrAuthInvalid, e.Err}
}

// Coordinator makes sure at most one renewal call is in flight. Callers arriving while a
// round is running share its outcome.
type Coordinator struct {
	store   *session.Store
	renewer Renewer
	group   singleflight.Group
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type CoordinatorOption func(*Coordinator)

// WithTimeout bounds each renewal round. Non-positive values keep the default.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func NewCoordinator(store *session.Store, renewer Renewer, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:   store,
		renewer: renewer,
		timeout: defaultRenewTimeout,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Renew returns a fresh credential, joining the running round if there is one.
// On failure the session has already been cleared and the error matches ErrAuthInvalid,
// including when the session is signed out while the round is running.
// ctx only limits how long this caller waits; the round itself runs to completion for
// everyone else attached to it.
func (c *Coordinator) Renew(ctx context.Context) (session.Credential, error) {
	ch := c.group.DoChan(flightKey, c.runRound)

	select {
	case res := <-ch:
		if res.Err != nil {
			return session.Credential{}, res.Err
		}
		return res.Val.(session.Credential), nil
	case <-ctx.Done():
		return session.Credential{}, ctx.Err()
	}
}

type renewResult struct {
	cred session.Credential
	err  error
}

func (c *Coordinator) runRound() (any, error) {
	round, err := c.store.StartRefresh()
	if err != nil {
		return nil, &RefreshError{Round: round, Err: err}
	}

	logger := c.logger.With().Uint64("round", round).Logger()
	logger.Debug().Msg("renewing credential")
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	// The renewer runs in its own goroutine so a call that ignores ctx still cannot hold the queue
	done := make(chan renewResult, 1)
	go func() {
		cred, err := c.renewer.Renew(ctx)
		done <- renewResult{cred: cred, err: err}
	}()

	var res renewResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err == nil && !res.cred.Present() {
		res.err = autherrors.Wrapf(autherrors.ErrRefreshFailed, "empty credential")
	}
	if errors.Is(res.err, autherrors.ErrAuthExpired) {
		// A rejected renewal is final; keep the cause readable but not matchable as expiry
		res.err = fmt.Errorf("%w: %v", autherrors.ErrRefreshFailed, res.err)
	}

	if res.err != nil {
		result := metrics.RenewFailure
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = fmt.Errorf("%w after %s: %w", autherrors.ErrRefreshTimeout, c.timeout, res.err)
			result = metrics.RenewTimeout
		}
		if err := c.store.FailRefresh(res.err); err != nil {
			logger.Error().Err(err).Msg("recording renewal failure")
		}
		c.metrics.ObserveRenewal(result)
		logger.Warn().Err(res.err).Dur("elapsed", time.Since(started)).Msg("credential renewal failed, session signed out")
		return nil, &RefreshError{Round: round, Err: res.err}
	}

	if err := c.store.CompleteRefresh(res.cred); err != nil {
		c.metrics.ObserveRenewal(metrics.RenewFailure)
		if errors.Is(err, autherrors.ErrSignedOut) {
			logger.Info().Msg("session signed out while renewing, renewed credential discarded")
		} else {
			logger.Error().Err(err).Msg("installing renewed credential")
		}
		return nil, &RefreshError{Round: round, Err: err}
	}
	c.metrics.ObserveRenewal(metrics.RenewSuccess)
	logger.Info().Str("role", string(res.cred.Role)).Dur("elapsed", time.Since(started)).Msg("credential renewed")
	return res.cred, nil
}
