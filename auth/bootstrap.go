package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/users"
	"github.com/rs/zerolog/log"
)

// EnsureAdmin creates a verified admin account for email unless one already exists.
// Nothing happens when email is empty.
func EnsureAdmin(ctx context.Context, userRepo users.Repo, roleRepo roles.Repo, email, password string) error {
	if email == "" {
		return nil
	}

	existing, err := userRepo.GetByIdentifier(ctx, email)
	if err == nil {
		if existing.Email != users.NormalizeEmail(email) {
			return fmt.Errorf("[auth.EnsureAdmin] %s is another user's username: %w", email, apperrors.ErrUserExists)
		}
		return nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return fmt.Errorf("[auth.EnsureAdmin] GetByIdentifier: %w", err)
	}

	adminRole, err := roleRepo.GetByName(ctx, roles.RoleAdmin)
	if err != nil {
		return fmt.Errorf("[auth.EnsureAdmin] admin role: %w", err)
	}

	// The email doubles as username, emails are unique so it cannot shadow another account.
	admin, err := users.New(email, users.NormalizeEmail(email), password, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("[auth.EnsureAdmin] %w", err)
	}
	admin.IsVerified = true
	admin.RoleID = adminRole.ID
	if err := userRepo.Upsert(ctx, admin); err != nil {
		return fmt.Errorf("[auth.EnsureAdmin] Upsert: %w", err)
	}
	log.Info().Str("email", admin.Email).Msg("bootstrap admin created")
	return nil
}
