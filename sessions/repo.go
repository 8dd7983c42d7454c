package sessions

import (
	"context"
	"time"
)

// Repo is the session storage. Every write touches a single record or is scoped
// by user id, no multi-document transaction is assumed.
type Repo interface {
	Insert(ctx context.Context, session *Session) error
	// Get returns the session whatever its state, or an error wrapping errors.ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Touch sets lastActivity on an active, unexpired session and returns the updated
	// record. A miss returns nil, nil.
	Touch(ctx context.Context, sessionID string, now time.Time) (*Session, error)
	// SetAccessToken replaces the embedded token and expiry of an active, unexpired session.
	SetAccessToken(ctx context.Context, sessionID, accessToken string, expiresAt, now time.Time) error
	// ListActiveByUser returns active, unexpired sessions, most recently active first
	// with ties broken by descending Seq.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*Session, error)

	// Delete is idempotent.
	Delete(ctx context.Context, sessionID string) error
	DeleteMany(ctx context.Context, sessionIDs []string) (int64, error)
	// DeleteByUser removes every session of userID except keepSessionID (empty keeps none).
	DeleteByUser(ctx context.Context, userID, keepSessionID string) (int64, error)
	// DeleteStaleByUser removes the user's inactive or expired sessions and returns their ids.
	DeleteStaleByUser(ctx context.Context, userID string, now time.Time) ([]string, error)
	// DeleteStale removes every inactive or expired session and returns their ids.
	DeleteStale(ctx context.Context, now time.Time) ([]string, error)
}
