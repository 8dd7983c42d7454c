package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/metrics"
	"github.com/rs/zerolog/log"
)

// TokenIssuer mints the access token embedded in a session.
type TokenIssuer interface {
	Issue(userID, sessionID string) (string, time.Time, error)
}

// Listener is told when sessions go away so process-local state (websocket
// connections) can follow.
type Listener interface {
	SessionsClosed(sessionIDs ...string)
	UserSessionsClosed(userID, exceptSessionID string)
}

type noopListener struct{}

func (noopListener) SessionsClosed(...string)          {}
func (noopListener) UserSessionsClosed(string, string) {}

// Store owns the session lifecycle: capped creation, validation, invalidation and sweeping.
//
// Mutations for one user are serialized by an in-process lock so a single process
// never exceeds the cap. Several processes sharing a database can still overshoot
// by a session during concurrent logins.
type Store struct {
	repo        Repo
	issuer      TokenIssuer
	listener    Listener
	maxSessions int
	nowFunc     func() time.Time
	locks       *userLocks
	lastSeq     atomic.Int64
}

type StoreOption func(*Store)

func WithNowTime(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// WithMaxSessions overrides MaxSessionsPerUser. Values below 1 are ignored.
func WithMaxSessions(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

func WithListener(l Listener) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.listener = l
		}
	}
}

func NewStore(repo Repo, issuer TokenIssuer, opts ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[sessions.NewStore] session repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[sessions.NewStore] token issuer is required")
	}
	s := &Store{
		repo:        repo,
		issuer:      issuer,
		listener:    noopListener{},
		maxSessions: MaxSessionsPerUser,
		nowFunc:     time.Now,
		locks:       newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) MaxSessions() int {
	return s.maxSessions
}

// CreateSession evicts the least recently active sessions beyond the cap, then stores a
// new session carrying a freshly minted token. Only the id is returned.
func (s *Store) CreateSession(ctx context.Context, userID string, device Device) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("[Store.CreateSession] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	sessionID, closed, err := s.createSession(ctx, userID, device)
	// Listeners write to sockets, keep them out of the user lock.
	s.listener.SessionsClosed(closed...)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// createSession runs under the user lock and returns the ids it removed.
func (s *Store) createSession(ctx context.Context, userID string, device Device) (string, []string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.nowFunc()
	active, err := s.repo.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return "", nil, fmt.Errorf("[Store.CreateSession] ListActiveByUser: %w", err)
	}

	var closed []string
	if len(active) >= s.maxSessions {
		excess := active[s.maxSessions-1:]
		ids := make([]string, 0, len(excess))
		for _, old := range excess {
			ids = append(ids, old.SessionID)
		}
		evicted, err := s.repo.DeleteMany(ctx, ids)
		if err != nil {
			return "", nil, fmt.Errorf("[Store.CreateSession] evict: %w", err)
		}
		metrics.RecordEvictions(int(evicted))
		closed = append(closed, ids...)
		log.Info().Str("userId", userID).Strs("sessionIds", ids).Msg("evicted sessions over cap")
	}

	stale, err := s.repo.DeleteStaleByUser(ctx, userID, now)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("failed to remove stale sessions")
	}
	closed = append(closed, stale...)

	sessionID := uuid.NewString()
	accessToken, expiresAt, err := s.issuer.Issue(userID, sessionID)
	if err != nil {
		return "", closed, fmt.Errorf("[Store.CreateSession] issue token: %w", err)
	}

	session := &Session{
		SessionID:    sessionID,
		UserID:       userID,
		AccessToken:  accessToken,
		Device:       device,
		IsActive:     true,
		LastActivity: now,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
		Seq:          s.nextSeq(now),
	}
	if err := s.repo.Insert(ctx, session); err != nil {
		return "", closed, fmt.Errorf("[Store.CreateSession] Insert: %w", err)
	}
	return sessionID, closed, nil
}

// IssueAccessToken mints a new token for a live session and records it as the
// session's current token, moving the session expiry to match.
func (s *Store) IssueAccessToken(ctx context.Context, sessionID string) (string, time.Time, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Store.IssueAccessToken] Get: %w", err)
	}
	now := s.nowFunc()
	if !session.IsValidAt(now) {
		return "", time.Time{}, fmt.Errorf("[Store.IssueAccessToken] %s: %w", sessionID, apperrors.ErrSessionExpired)
	}

	accessToken, expiresAt, err := s.issuer.Issue(session.UserID, sessionID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[Store.IssueAccessToken] issue token: %w", err)
	}
	if err := s.repo.SetAccessToken(ctx, sessionID, accessToken, expiresAt, now); err != nil {
		return "", time.Time{}, fmt.Errorf("[Store.IssueAccessToken] SetAccessToken: %w", err)
	}
	return accessToken, expiresAt, nil
}

// ValidateSession returns the refreshed session, or nil when it is missing, inactive or
// expired. Callers cannot tell those cases apart.
func (s *Store) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.repo.Touch(ctx, sessionID, s.nowFunc())
	if err != nil {
		return nil, fmt.Errorf("[Store.ValidateSession] Touch: %w", err)
	}
	return session, nil
}

// GetSession returns a session whatever its state.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return s.repo.Get(ctx, sessionID)
}

// InvalidateSession deletes the session. Deleting a missing session is not an error.
func (s *Store) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("[Store.InvalidateSession] Delete: %w", err)
	}
	s.listener.SessionsClosed(sessionID)
	return nil
}

// InvalidateAllUserSessions deletes every session the user holds.
func (s *Store) InvalidateAllUserSessions(ctx context.Context, userID string) (int64, error) {
	return s.invalidateUser(ctx, userID, "")
}

// InvalidateOtherUserSessions deletes every session of the user except keepSessionID.
func (s *Store) InvalidateOtherUserSessions(ctx context.Context, userID, keepSessionID string) (int64, error) {
	if keepSessionID == "" {
		return 0, fmt.Errorf("[Store.InvalidateOtherUserSessions] session to keep is required: %w", apperrors.ErrInvalidRequest)
	}
	return s.invalidateUser(ctx, userID, keepSessionID)
}

func (s *Store) invalidateUser(ctx context.Context, userID, keepSessionID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("[Store.invalidateUser] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	unlock := s.locks.Lock(userID)
	n, err := s.repo.DeleteByUser(ctx, userID, keepSessionID)
	unlock()
	if err != nil {
		return 0, fmt.Errorf("[Store.invalidateUser] DeleteByUser: %w", err)
	}
	s.listener.UserSessionsClosed(userID, keepSessionID)
	log.Info().Str("userId", userID).Int64("count", n).Str("kept", keepSessionID).Msg("invalidated user sessions")
	return n, nil
}

// GetUserActiveSessions lists active, unexpired sessions, most recent first.
func (s *Store) GetUserActiveSessions(ctx context.Context, userID string) ([]*Session, error) {
	list, err := s.repo.ListActiveByUser(ctx, userID, s.nowFunc())
	if err != nil {
		return nil, fmt.Errorf("[Store.GetUserActiveSessions] ListActiveByUser: %w", err)
	}
	return list, nil
}

// CleanupExpiredSessions deletes every expired or inactive session, tells the listener
// which ones went and returns the count. Safe to run alongside request traffic.
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	ids, err := s.repo.DeleteStale(ctx, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("[Store.CleanupExpiredSessions] DeleteStale: %w", err)
	}
	s.listener.SessionsClosed(ids...)
	n := int64(len(ids))
	metrics.RecordSwept(n)
	return n, nil
}

func (s *Store) nextSeq(now time.Time) int64 {
	for {
		last := s.lastSeq.Load()
		next := now.UnixNano()
		if next <= last {
			next = last + 1
		}
		if s.lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}
