package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/jrsteele09/taskhub-server/auth"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Error codes for failures that are not gateway failures.
const (
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeNotVerified        = "EMAIL_NOT_VERIFIED"
	codeMaintenance        = "MAINTENANCE"
	codeForbidden          = "FORBIDDEN"
	codeBadRequest         = "BAD_REQUEST"
	codeWeakPassword       = "WEAK_PASSWORD"
	codeInvalidResetToken  = "INVALID_RESET_TOKEN"
	codeNotFound           = "NOT_FOUND"
	codeConflict           = "CONFLICT"
	codeUnavailable        = "UNAVAILABLE"
	codeInternal           = "INTERNAL_ERROR"
)

// errorResponse is the JSON body of every rejected request.
type errorResponse struct {
	Message           string   `json:"message"`
	Code              string   `json:"code,omitempty"`
	Required          []string `json:"required,omitempty"`
	NeedsVerification bool     `json:"needsVerification,omitempty"`
	Email             string   `json:"email,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("failed to write response body")
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Message: message, Code: code})
}

func writeFailure(w http.ResponseWriter, failure *auth.Failure) {
	writeError(w, failure.Status, failure.Message, string(failure.Code))
}

// writeServiceError maps a service error onto the HTTP contract. Internal detail is
// logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		failure     *auth.Failure
		unverified  *auth.UnverifiedError
		maintenance *auth.MaintenanceError
	)
	switch {
	case errors.As(err, &failure):
		if failure.Status >= http.StatusInternalServerError {
			log.Err(err).Str("path", r.URL.Path).Msg("authentication error")
		}
		writeFailure(w, failure)
	case errors.As(err, &unverified):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Message:           "Please verify your email address before logging in",
			Code:              codeNotVerified,
			NeedsVerification: true,
			Email:             unverified.Email,
		})
	case errors.As(err, &maintenance):
		writeError(w, http.StatusLocked, maintenance.Message, codeMaintenance)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials", codeInvalidCredentials)
	case errors.Is(err, apperrors.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, weakPasswordMessage(err), codeWeakPassword)
	case errors.Is(err, apperrors.ErrInvalidResetToken):
		writeError(w, http.StatusBadRequest, "Reset token is invalid or has expired", codeInvalidResetToken)
	case errors.Is(err, apperrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "Invalid request", codeBadRequest)
	case errors.Is(err, apperrors.ErrUserExists):
		writeError(w, http.StatusConflict, "Email or username already registered", codeConflict)
	case errors.Is(err, apperrors.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", codeNotFound)
	case errors.Is(err, apperrors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found", codeNotFound)
	case errors.Is(err, apperrors.ErrRoleNotFound), errors.Is(err, apperrors.ErrUnknownRole):
		writeError(w, http.StatusNotFound, "Role not found", codeNotFound)
	default:
		log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error", codeInternal)
	}
}

// weakPasswordMessage keeps the rule that failed and drops the wrapped sentinel.
func weakPasswordMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "+apperrors.ErrWeakPassword.Error()); i > 0 {
		msg = msg[:i]
	}
	if i := strings.LastIndex(msg, "] "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}

// decodeJSON reads a bounded JSON body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err), codeBadRequest)
		return false
	}
	return true
}

// bearerToken returns the token of an "Authorization: Bearer" header. A header with
// another scheme is returned whole so the gateway rejects it as an invalid token.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(HeaderAuthorization))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}

func sessionIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderSessionID))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
