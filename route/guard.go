package route

import (
	"slices"
	"strings"

	"github.com/jrsteele09/door-client/session"
)

// Decision is the result of a navigation check.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToDenied
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToDenied:
		return "redirect_to_denied"
	}
	return "unknown"
}

// Policy says who may enter a route. Public routes need no session at all; otherwise an
// empty Roles set admits any signed-in role.
type Policy struct {
	Public bool
	Roles  []session.Role
}

// Guard evaluates navigation attempts. Decisions are never cached.
type Guard struct {
	store    *session.Store
	policies map[string]Policy
	fallback Policy
}

type GuardOption func(*Guard)

// WithPolicy adds or replaces the policy for path.
func WithPolicy(path string, p Policy) GuardOption {
	return func(g *Guard) {
		g.policies[normalise(path)] = p
	}
}

// WithFallback sets the policy for routes missing from the table.
func WithFallback(p Policy) GuardOption {
	return func(g *Guard) {
		g.fallback = p
	}
}

// NewGuard builds a guard over the default door-client routes plus any extra policies.
func NewGuard(store *session.Store, options ...GuardOption) *Guard {
	g := &Guard{
		store:    store,
		policies: DefaultPolicies(),
		fallback: Policy{},
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Check evaluates route against the store's current credential.
func (g *Guard) Check(route string) Decision {
	return g.CanEnter(route, g.store.Get())
}

// CanEnter decides whether cred may enter route.
func (g *Guard) CanEnter(route string, cred session.Credential) Decision {
	policy := g.PolicyFor(route)
	if policy.Public {
		return Allow
	}

	switch cred.Validity(g.store.Now(), g.store.ClockSkew()) {
	case session.Absent, session.Expired:
		return RedirectToLogin
	}

	if len(policy.Roles) == 0 || slices.Contains(policy.Roles, cred.Role) {
		return Allow
	}
	return RedirectToDenied
}

func (g *Guard) PolicyFor(route string) Policy {
	if p, ok := g.policies[normalise(route)]; ok {
		return p
	}
	return g.fallback
}

// normalise drops the query, fragment and trailing slash so "/control/?x=1" matches "/control".
func normalise(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}
