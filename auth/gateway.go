package auth

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// Authenticate resolves the caller from a session id and an optional bearer token.
// Checks run in a fixed order: session id present, token valid, token bound to the
// session, session live, token bound to the session's user. Unexpected errors give
// SESSION_ERROR and never authenticate.
func (s *Service) Authenticate(ctx context.Context, sessionID, bearer string) (principal *Principal, failure *Failure) {
	defer func() {
		if rec := recover(); rec != nil {
			principal = nil
			failure = sessionError(fmt.Errorf("panic: %v", rec))
		}
	}()

	if sessionID == "" {
		return nil, unauthorized(CodeNoSession, "Session ID required")
	}

	var claimsUserID string
	if bearer != "" {
		claims := s.tokens.Verify(bearer)
		if claims == nil {
			return nil, unauthorized(CodeTokenInvalid, "Invalid or expired access token")
		}
		if claims.SessionID != sessionID {
			return nil, unauthorized(CodeSessionMismatch, "Access token does not belong to this session")
		}
		claimsUserID = claims.UserID
	}

	session, err := s.sessions.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, sessionError(err)
	}
	if session == nil {
		return nil, unauthorized(CodeSessionInvalid, "Session is invalid or has expired")
	}

	if bearer != "" && claimsUserID != session.UserID {
		return nil, unauthorized(CodeUserMismatch, "Access token does not belong to this user")
	}

	user, err := s.repos.Users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, unauthorized(CodeSessionInvalid, "Session is invalid or has expired")
		}
		return nil, sessionError(err)
	}
	if !user.CanLogin() {
		return nil, unauthorized(CodeSessionInvalid, "Session is invalid or has expired")
	}

	principal = &Principal{
		SessionID: sessionID,
		Session:   session,
		User:      user.Sanitized(),
		Token:     bearer,
	}

	// A missing role only limits what the caller may do, authorization denies on its own.
	if role, err := s.resolver.RoleFor(ctx, user); err == nil {
		principal.Role = role
	} else {
		log.Debug().Err(err).Str("userId", user.ID).Msg("authenticated user has no resolvable role")
	}
	return principal, nil
}
