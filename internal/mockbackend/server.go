// Package mockbackend is an in-process stand-in for the door backend: session endpoints that
// issue short-lived JWT access tokens against a renewal cookie, and the device, access-log and
// allow-list endpoints behind bearer authentication.
package mockbackend

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RefreshCookieName = "refreshToken"
	defaultAccessTTL  = 15 * time.Minute
)

type ctxKey string

const ctxKeyClaims ctxKey = "claims"

type accessClaims struct {
	jwtlib.RegisteredClaims
	Role       string `json:"role"`
	Generation int64  `json:"gen"`
}

// Server is the fake backend. The zero value is not usable; call New.
type Server struct {
	secret    []byte
	accessTTL time.Duration
	logger    zerolog.Logger

	mu         sync.Mutex
	users      map[string]User   // idToken → profile
	refresh    map[string]string // refresh cookie → idToken
	door       string
	alarm      string
	logs       []AccessLog
	allowed    map[string]struct{}
	generation int64

	renewDelay   atomic.Int64
	failRenewals atomic.Bool
	tokenOnLogin atomic.Bool
	renewCalls   atomic.Int32

	router chi.Router
}

type User struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
	Role     string `json:"role"`
}

type AccessLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	User      string    `json:"user"`
	Door      string    `json:"door"`
	Alarm     string    `json:"alarm"`
}

type Option func(*Server)

func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithUser registers a user who signs in with idToken.
func WithUser(idToken string, u User) Option {
	return func(s *Server) {
		s.users[idToken] = u
		s.allowed[strings.ToLower(u.Email)] = struct{}{}
	}
}

func New(options ...Option) *Server {
	s := &Server{
		secret:    []byte(uuid.NewString()),
		accessTTL: defaultAccessTTL,
		logger:    log.Logger,
		users:     make(map[string]User),
		refresh:   make(map[string]string),
		allowed:   make(map[string]struct{}),
		door:      "closed",
		alarm:     "inactive",
	}
	for _, opt := range options {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RenewCalls is the number of GET /token requests received.
func (s *Server) RenewCalls() int {
	return int(s.renewCalls.Load())
}

// SetRenewDelay makes GET /token wait before answering.
func (s *Server) SetRenewDelay(d time.Duration) {
	s.renewDelay.Store(int64(d))
}

// FailRenewals makes GET /token answer 401.
func (s *Server) FailRenewals(fail bool) {
	s.failRenewals.Store(fail)
}

// IssueTokenOnLogin makes POST /sessionLogin return an access token alongside the cookie.
func (s *Server) IssueTokenOnLogin(issue bool) {
	s.tokenOnLogin.Store(issue)
}

// ExpireAccessTokens invalidates every access token issued so far. Renewal cookies stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// SetRole changes the role future tokens for idToken will carry.
func (s *Server) SetRole(idToken, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[idToken]
	u.Role = role
	s.users[idToken] = u
}

// IssueAccessToken signs a token for idToken's user directly, bypassing the cookie.
func (s *Server) IssueAccessToken(idToken string) (string, error) {
	s.mu.Lock()
	u, gen := s.users[idToken], s.generation
	s.mu.Unlock()
	return s.sign(u, gen)
}

func (s *Server) sign(u User, gen int64) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
		Role:       u.Role,
		Generation: gen,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessionLogin", s.sessionLogin)
		r.Get("/token", s.token)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/checkSession", s.checkSession)
			r.Post("/logout", s.logout)
			r.Get("/status", s.status)
			r.Post("/control", s.control)
			r.Get("/access-logs", s.listLogs)
			r.Delete("/access-logs", s.clearLogs)
			r.Delete("/access-logs/{id}", s.deleteLog)

			r.Group(func(r chi.Router) {
				r.Use(requireRole("admin"))
				r.Get("/allowed-emails", s.listAllowed)
				r.Post("/allowed-emails", s.addAllowed)
				r.Delete("/allowed-emails/{email}", s.removeAllowed)
			})
		})
	})
	return r
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := &accessClaims{}
		_, err := jwtlib.ParseWithClaims(parts[1], claims, func(*jwtlib.Token) (any, error) {
			return s.secret, nil
		}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		s.mu.Lock()
		stale := claims.Generation < s.generation
		s.mu.Unlock()
		if stale {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(ctxKeyClaims).(*accessClaims)
			if claims == nil || claims.Role != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) sessionLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IDToken == "" {
		writeError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	s.mu.Lock()
	u, ok := s.users[body.IDToken]
	_, allowed := s.allowed[strings.ToLower(u.Email)]
	gen := s.generation
	var cookie string
	if ok && allowed {
		cookie = uuid.NewString()
		s.refresh[cookie] = body.IDToken
	}
	s.mu.Unlock()

	if !ok || !allowed {
		writeError(w, http.StatusUnauthorized, "identity not allowed")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: RefreshCookieName, Value: cookie, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})

	resp := map[string]any{"user": u}
	if s.tokenOnLogin.Load() {
		tok, err := s.sign(u, gen)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "signing token")
			return
		}
		resp["accessToken"] = tok
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.renewCalls.Add(1)

	if d := time.Duration(s.renewDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if s.failRenewals.Load() {
		writeError(w, http.StatusUnauthorized, "refresh token rejected")
		return
	}

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no refresh token")
		return
	}

	s.mu.Lock()
	idToken, ok := s.refresh[cookie.Value]
	u, gen := s.users[idToken], s.generation
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown refresh token")
		return
	}

	tok, err := s.sign(u, gen)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "signing token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": tok, "role": u.Role})
}

func (s *Server) checkSession(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(ctxKeyClaims).(*accessClaims)
	s.mu.Lock()
	var user User
	for _, u := range s.users {
		if u.Email == claims.Subject {
			user = u
			break
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		s.mu.Lock()
		delete(s.refresh, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: RefreshCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"door": s.door, "alarm": s.alarm})
}

func (s *Server) control(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var door, msg string
	switch body.Action {
	case "open":
		door, msg = "open", "door opened"
	case "close":
		door, msg = "closed", "door closed"
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	claims := r.Context().Value(ctxKeyClaims).(*accessClaims)
	s.mu.Lock()
	s.door = door
	s.logs = append(s.logs, AccessLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Method:    "web",
		User:      claims.Subject,
		Door:      door,
		Alarm:     s.alarm,
	})
	s.mu.Unlock()

	s.logger.Debug().Str("user", claims.Subject).Str("action", body.Action).Msg("door action")
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) listLogs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	logs := append([]AccessLog(nil), s.logs...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"total": len(logs), "logs": logs})
}

func (s *Server) deleteLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.logs {
		if l.ID == id {
			s.logs = append(s.logs[:i], s.logs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "log not found")
}

func (s *Server) clearLogs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.logs = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "cleared"})
}

func (s *Server) listAllowed(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	emails := make([]string, 0, len(s.allowed))
	for e := range s.allowed {
		emails = append(emails, e)
	}
	s.mu.Unlock()
	sort.Strings(emails)
	writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
}

func (s *Server) addAllowed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	s.mu.Lock()
	s.allowed[strings.ToLower(body.Email)] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"email": body.Email})
}

func (s *Server) removeAllowed(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(chi.URLParam(r, "email"))
	s.mu.Lock()
	_, ok := s.allowed[email]
	delete(s.allowed, email)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "email not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
