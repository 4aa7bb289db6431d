package session

import (
	"sync"
	"time"

	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventType says what happened to the current credential.
type EventType int

const (
	EventSet EventType = iota
	EventCleared
)

// Event is delivered to subscribers after every credential change.
type Event struct {
	Type       EventType
	Credential Credential
}

// Store holds the current credential and the renewal state. It is the single source of truth
// for the session; construct one per session and inject it.
type Store struct {
	mu      sync.RWMutex
	current Credential
	refresh RefreshState

	// signOuts counts Clear and FailRefresh calls; refreshFrom is its value when the
	// running round started.
	signOuts    uint64
	refreshFrom uint64

	subsMu sync.Mutex
	subs   map[int]chan Event
	nextID int

	nowFunc func() time.Time
	skew    time.Duration
	logger  zerolog.Logger
}

type StoreOption func(*Store)

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithClockSkew(skew time.Duration) StoreOption {
	return func(s *Store) {
		s.skew = skew
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(options ...StoreOption) *Store {
	s := &Store{
		subs:    make(map[int]chan Event),
		nowFunc: time.Now,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get returns the current credential, the zero Credential when signed out.
func (s *Store) Get() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the current credential.
func (s *Store) Set(cred Credential) {
	s.mu.Lock()
	s.current = cred
	s.mu.Unlock()

	s.publish(Event{Type: EventSet, Credential: cred})
}

// Clear signs the session out. A Failed renewal state goes back to Idle. A round still in
// flight keeps running but can no longer install its credential.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = Credential{}
	s.signOuts++
	if s.refresh.Phase == Failed {
		s.refresh = RefreshState{Phase: Idle, Round: s.refresh.Round}
	}
	s.mu.Unlock()

	s.logger.Debug().Msg("session cleared")
	s.publish(Event{Type: EventCleared})
}

// Validity evaluates the current credential against the store's clock.
func (s *Store) Validity() Validity {
	return s.Get().Validity(s.Now(), s.skew)
}

func (s *Store) Now() time.Time {
	return s.nowFunc()
}

func (s *Store) ClockSkew() time.Duration {
	return s.skew
}

// SignOuts returns how many times the session has been signed out.
func (s *Store) SignOuts() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signOuts
}

func (s *Store) RefreshState() RefreshState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// StartRefresh moves Idle or Failed to Refreshing and returns the new round number.
func (s *Store) StartRefresh() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh.Phase == Refreshing {
		return s.refresh.Round, autherrors.ErrRefreshInProgress
	}
	s.refresh = RefreshState{Phase: Refreshing, Round: s.refresh.Round + 1}
	s.refreshFrom = s.signOuts
	return s.refresh.Round, nil
}

// CompleteRefresh installs the renewed credential and returns to Idle. If the session was
// signed out after the round started the credential is discarded and ErrSignedOut is returned.
func (s *Store) CompleteRefresh(cred Credential) error {
	s.mu.Lock()
	if s.refresh.Phase != Refreshing {
		s.mu.Unlock()
		return autherrors.Wrapf(autherrors.ErrInvalidTransition, "complete from %s", s.refresh.Phase)
	}
	if s.signOuts != s.refreshFrom {
		round := s.refresh.Round
		s.refresh = RefreshState{Phase: Idle, Round: round}
		s.mu.Unlock()
		return autherrors.Wrapf(autherrors.ErrSignedOut, "round %d", round)
	}
	s.current = cred
	s.refresh = RefreshState{Phase: Idle, Round: s.refresh.Round}
	s.mu.Unlock()

	s.publish(Event{Type: EventSet, Credential: cred})
	return nil
}

// FailRefresh records the failure and signs out in the same step, so no reader can see
// a Failed round alongside a credential that still looks usable.
func (s *Store) FailRefresh(reason error) error {
	s.mu.Lock()
	if s.refresh.Phase != Refreshing {
		s.mu.Unlock()
		return autherrors.Wrapf(autherrors.ErrInvalidTransition, "fail from %s", s.refresh.Phase)
	}
	s.current = Credential{}
	s.signOuts++
	s.refresh = RefreshState{Phase: Failed, Round: s.refresh.Round, Reason: reason}
	s.mu.Unlock()

	s.publish(Event{Type: EventCleared})
	return nil
}

// Subscribe returns a channel of credential changes and a function that stops delivery.
// Slow subscribers miss events rather than block writers.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(ev Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn().Msg("session subscriber is not keeping up, event dropped")
		}
	}
}
