package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/taskhub-server/auth"
	"github.com/jrsteele09/taskhub-server/metrics"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the authenticated *auth.Principal
const ContextKeyPrincipal ContextKey = "principal"

func withPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// PrincipalFromContext returns the caller attached by RequireAuth, or nil.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(ContextKeyPrincipal).(*auth.Principal)
	return p
}

// RequireAuth validates the X-Session-ID header and optional bearer token
// and attaches the caller to the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.authenticate(w, r, sessionIDFromHeader(r), bearerToken(r), next)
		}
	}
}

// RequireWebSocketAuth also accepts sessionId and token query parameters,
// since browsers cannot set headers on a websocket handshake.
func (s *Server) RequireWebSocketAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionIDFromHeader(r)
			if sessionID == "" {
				sessionID = strings.TrimSpace(r.URL.Query().Get("sessionId"))
			}
			bearer := bearerToken(r)
			if bearer == "" {
				bearer = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			s.authenticate(w, r, sessionID, bearer, next)
		}
	}
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, sessionID, bearer string, next http.HandlerFunc) {
	principal, failure := s.auth.Authenticate(r.Context(), sessionID, bearer)
	if failure != nil {
		metrics.RecordAuthFailure(string(failure.Code))
		if failure.Status >= http.StatusInternalServerError {
			log.Err(failure).Str("path", r.URL.Path).Msg("session validation failed")
		}
		writeFailure(w, failure)
		return
	}
	next(w, r.WithContext(withPrincipal(r.Context(), principal)))
}

// RequirePermission rejects callers whose live role does not grant permission.
// Must be chained after RequireAuth.
func (s *Server) RequirePermission(permission roles.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return s.authorize([]string{string(permission)}, func(ctx context.Context, p *auth.Principal) bool {
		return s.auth.Resolver().HasPermission(ctx, p, permission)
	})
}

// RequireAnyPermission admits callers holding at least one of permissions.
func (s *Server) RequireAnyPermission(permissions ...roles.Permission) func(http.HandlerFunc) http.HandlerFunc {
	required := make([]string, 0, len(permissions))
	for _, p := range permissions {
		required = append(required, string(p))
	}
	return s.authorize(required, func(ctx context.Context, p *auth.Principal) bool {
		return s.auth.Resolver().HasAnyPermission(ctx, p, permissions)
	})
}

// RequireRole compares the resolved role name rather than a permission.
func (s *Server) RequireRole(name roles.RoleName) func(http.HandlerFunc) http.HandlerFunc {
	return s.authorize([]string{string(name)}, func(ctx context.Context, p *auth.Principal) bool {
		return s.auth.Resolver().HasRole(ctx, p, name)
	})
}

func (s *Server) authorize(required []string, allowed func(ctx context.Context, p *auth.Principal) bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required", string(auth.CodeNoSession))
				return
			}
			if !allowed(r.Context(), principal) {
				writeJSON(w, http.StatusForbidden, errorResponse{
					Message:  "Insufficient permissions",
					Code:     codeForbidden,
					Required: required,
				})
				return
			}
			next(w, r)
		}
	}
}
