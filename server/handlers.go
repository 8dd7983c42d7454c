package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/taskhub-server/auth"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/sessions"
	"github.com/jrsteele09/taskhub-server/users"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (req loginRequest) identifier() string {
	for _, v := range []string{req.Identifier, req.Email, req.Username} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type meResponse struct {
	User    *users.User   `json:"user"`
	Role    *roles.Role   `json:"role,omitempty"`
	Session sessions.View `json:"session"`
}

type sessionsResponse struct {
	Sessions    []sessions.View `json:"sessions"`
	MaxSessions int             `json:"maxSessions"`
}

type countResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// LoginHandler checks credentials and opens a session. The response carries the
// session id for the X-Session-ID header and a bearer token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		identifier := req.identifier()
		if identifier == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "Identifier and password are required", codeBadRequest)
			return
		}

		result, err := s.auth.Login(r.Context(), auth.LoginRequest{
			Identifier: identifier,
			Password:   req.Password,
			UserAgent:  r.UserAgent(),
			IP:         clientIP(r),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if err := s.auth.Logout(r.Context(), principal, bearerToken(r)); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
	}
}

// MeHandler returns the caller's sanitized profile, role and current session.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		views := sessions.Views([]*sessions.Session{principal.Session}, principal.SessionID)
		writeJSON(w, http.StatusOK, meResponse{
			User:    principal.User,
			Role:    principal.Role,
			Session: views[0],
		})
	}
}

func (s *Server) ListSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := s.auth.ListSessions(r.Context(), PrincipalFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionsResponse{Sessions: views, MaxSessions: s.auth.MaxSessions()})
	}
}

func (s *Server) RevokeSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if err := s.auth.RevokeSession(r.Context(), PrincipalFromContext(r.Context()), sessionID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Session revoked"})
	}
}

func (s *Server) LogoutOtherSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.auth.LogoutOtherSessions(r.Context(), PrincipalFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{Message: "Other sessions logged out", Count: n})
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.CurrentPassword == "" || req.NewPassword == "" {
			writeError(w, http.StatusBadRequest, "Current and new password are required", codeBadRequest)
			return
		}
		if err := s.auth.ChangePassword(r.Context(), PrincipalFromContext(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed, other sessions have been logged out"})
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler answers the same way whether or not the email is registered.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, "Email is required", codeBadRequest)
			return
		}
		if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "If the email is registered, a reset link has been sent"})
	}
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := s.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset, please log in again"})
	}
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Database unreachable", codeUnavailable)
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC()})
	}
}
