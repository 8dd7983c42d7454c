package auth

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/sessions"
)

// ListSessions returns the caller's live sessions with the current one flagged.
func (s *Service) ListSessions(ctx context.Context, principal *Principal) ([]sessions.View, error) {
	list, err := s.sessions.GetUserActiveSessions(ctx, principal.UserID())
	if err != nil {
		return nil, fmt.Errorf("[Service.ListSessions] %w", err)
	}
	return sessions.Views(list, principal.SessionID), nil
}

// RevokeSession ends one of the caller's other sessions. Sessions owned by someone
// else are reported as not found.
func (s *Service) RevokeSession(ctx context.Context, principal *Principal, sessionID string) error {
	if sessionID == principal.SessionID {
		return fmt.Errorf("[Service.RevokeSession] use logout to end the current session: %w", apperrors.ErrInvalidRequest)
	}

	target, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return apperrors.ErrSessionNotFound
		}
		return fmt.Errorf("[Service.RevokeSession] GetSession: %w", err)
	}
	if target.UserID != principal.UserID() {
		return apperrors.ErrSessionNotFound
	}

	if err := s.sessions.InvalidateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("[Service.RevokeSession] InvalidateSession: %w", err)
	}
	return nil
}

// LogoutOtherSessions keeps the current session and removes the rest.
func (s *Service) LogoutOtherSessions(ctx context.Context, principal *Principal) (int64, error) {
	n, err := s.sessions.InvalidateOtherUserSessions(ctx, principal.UserID(), principal.SessionID)
	if err != nil {
		return 0, fmt.Errorf("[Service.LogoutOtherSessions] %w", err)
	}
	return n, nil
}
