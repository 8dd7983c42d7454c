package auth

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// DeleteUser soft-deletes an account and ends every session it holds. The record
// itself is purged by the scheduler once the retention window has passed.
// Deleting an already deleted user only repeats the session cleanup.
func (s *Service) DeleteUser(ctx context.Context, actor *Principal, userID string) error {
	if userID == "" || userID == actor.UserID() {
		return fmt.Errorf("[Service.DeleteUser] cannot delete own account: %w", apperrors.ErrInvalidRequest)
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("[Service.DeleteUser] GetByID: %w", err)
	}
	if !user.IsDeleted {
		if err := s.repos.Users.SoftDelete(ctx, userID, s.nowTime()); err != nil {
			return fmt.Errorf("[Service.DeleteUser] SoftDelete: %w", err)
		}
	}

	if _, err := s.sessions.InvalidateAllUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("[Service.DeleteUser] InvalidateAllUserSessions: %w", err)
	}
	s.markLoggedOutIfIdle(ctx, userID)

	log.Info().Str("userId", userID).Str("by", actor.UserID()).Msg("user deleted")
	return nil
}
