package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/users"
	"github.com/rs/zerolog/log"
)

const resetTokenLength = 32

// ChangePassword replaces the caller's password and signs out every other device.
// The current session stays valid.
func (s *Service) ChangePassword(ctx context.Context, principal *Principal, currentPassword, newPassword string) error {
	if principal == nil {
		return unauthorized(CodeNoSession, "Session ID required")
	}

	user, err := s.repos.Users.GetByID(ctx, principal.UserID())
	if err != nil {
		return fmt.Errorf("[Service.ChangePassword] GetByID: %w", err)
	}
	if !user.CheckPassword(currentPassword) {
		return apperrors.ErrInvalidCredentials
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("[Service.ChangePassword] HashPassword: %w", err)
	}
	if err := s.repos.Users.SetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("[Service.ChangePassword] SetPassword: %w", err)
	}

	if _, err := s.sessions.InvalidateOtherUserSessions(ctx, user.ID, principal.SessionID); err != nil {
		return fmt.Errorf("[Service.ChangePassword] InvalidateOtherUserSessions: %w", err)
	}
	log.Info().Str("userId", user.ID).Msg("password changed, other sessions invalidated")
	return nil
}

// RequestPasswordReset emails a single-use reset token. Unknown addresses succeed
// silently so the endpoint cannot be used to discover accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repos.Users.GetByIdentifier(ctx, users.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			log.Debug().Str("email", email).Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("[Service.RequestPasswordReset] GetByIdentifier: %w", err)
	}
	if !user.CanLogin() {
		return nil
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("[Service.RequestPasswordReset] generate token: %w", err)
	}
	expiresAt := s.nowTime().Add(s.resetExpiry)
	if err := s.repos.Users.SetResetToken(ctx, user.ID, hashResetToken(rawToken), expiresAt); err != nil {
		return fmt.Errorf("[Service.RequestPasswordReset] SetResetToken: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, rawToken); err != nil {
		return fmt.Errorf("[Service.RequestPasswordReset] send: %w", err)
	}
	return nil
}

// ResetPassword sets a new password from a reset token and then removes every session
// the user holds. The call fails if the sessions could not be removed.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return apperrors.ErrInvalidResetToken
	}
	user, err := s.repos.Users.GetByResetTokenHash(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return fmt.Errorf("[Service.ResetPassword] GetByResetTokenHash: %w", err)
	}
	if user.PasswordResetExpiresAt == nil || !user.PasswordResetExpiresAt.After(s.nowTime()) {
		return apperrors.ErrInvalidResetToken
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("[Service.ResetPassword] HashPassword: %w", err)
	}
	if err := s.repos.Users.SetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("[Service.ResetPassword] SetPassword: %w", err)
	}

	if _, err := s.sessions.InvalidateAllUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("[Service.ResetPassword] InvalidateAllUserSessions: %w", err)
	}
	s.markLoggedOutIfIdle(ctx, user.ID)

	log.Info().Str("userId", user.ID).Msg("password reset, all sessions invalidated")
	return nil
}

func generateResetToken() (string, error) {
	b := make([]byte, resetTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashResetToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
