package users

import (
	"context"
	"time"
)

// Repo stores users. Lookups that match nothing return an error wrapping
// errors.ErrUserNotFound. Soft-deleted users are still returned, callers check CanLogin.
type Repo interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByIdentifier matches the email (case-insensitive) or the username.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Upsert(ctx context.Context, user *User) error

	SetRole(ctx context.Context, id, roleID string) error
	// SetLoggedIn flips IsLoggedIn and Status together. lastLogin is only written when non-zero.
	SetLoggedIn(ctx context.Context, id string, loggedIn bool, lastLogin time.Time) error
	// SetPassword stores a new hash and clears any outstanding reset token.
	SetPassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	SoftDelete(ctx context.Context, id string, at time.Time) error
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*User, error)
	Delete(ctx context.Context, id string) error
}
