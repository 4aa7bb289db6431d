package route

import "github.com/jrsteele09/door-client/session"

// Door-client views
const (
	Login     = "/"
	LoginPage = "/login"
	Dashboard = "/dashboard"
	Control   = "/control"
	History   = "/history"
	Settings  = "/settings"
)

func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		Login:     {Public: true},
		LoginPage: {Public: true},
		Dashboard: {},
		Control:   {Roles: []session.Role{session.RoleAdmin, session.RoleUser}},
		History:   {Roles: []session.Role{session.RoleAdmin, session.RoleUser}},
		Settings:  {Roles: []session.Role{session.RoleAdmin}},
	}
}
