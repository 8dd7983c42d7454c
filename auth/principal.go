package auth

import (
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/sessions"
	"github.com/jrsteele09/taskhub-server/users"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	SessionID string
	Session   *sessions.Session
	User      *users.User // credentials stripped
	Role      *roles.Role // nil when the user has no resolvable role
	Token     string      // raw bearer token, empty when none was sent
}

// RoleRef implements roles.Subject so permission checks re-fetch the live role.
func (p *Principal) RoleRef() string {
	if p == nil {
		return ""
	}
	return p.User.RoleRef()
}

func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}
