package fakesessionrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

func (sr *FakeSessionRepo) Insert(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.sessions[session.SessionID]; ok {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}
	copied := *session
	sr.sessions[session.SessionID] = &copied
	return nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrSessionNotFound)
	}
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) Touch(_ context.Context, sessionID string, now time.Time) (*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok || !session.IsValidAt(now) {
		return nil, nil
	}
	session.LastActivity = now
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) SetAccessToken(_ context.Context, sessionID, accessToken string, expiresAt, now time.Time) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[sessionID]
	if !ok || !session.IsValidAt(now) {
		return fmt.Errorf("session %s: %w", sessionID, apperrors.ErrSessionNotFound)
	}
	session.AccessToken = accessToken
	session.ExpiresAt = expiresAt
	return nil
}

func (sr *FakeSessionRepo) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	list := make([]*sessions.Session, 0)
	for _, s := range sr.sessions {
		if s.UserID == userID && s.IsValidAt(now) {
			copied := *s
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return sessions.MoreRecent(list[i], list[j])
	})
	return list, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	delete(sr.sessions, sessionID)
	return nil
}

func (sr *FakeSessionRepo) DeleteMany(_ context.Context, sessionIDs []string) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var n int64
	for _, id := range sessionIDs {
		if _, ok := sr.sessions[id]; ok {
			delete(sr.sessions, id)
			n++
		}
	}
	return n, nil
}

func (sr *FakeSessionRepo) DeleteByUser(_ context.Context, userID, keepSessionID string) (int64, error) {
	ids := sr.deleteWhere(func(s *sessions.Session) bool {
		return s.UserID == userID && s.SessionID != keepSessionID
	})
	return int64(len(ids)), nil
}

func (sr *FakeSessionRepo) DeleteStaleByUser(_ context.Context, userID string, now time.Time) ([]string, error) {
	return sr.deleteWhere(func(s *sessions.Session) bool {
		return s.UserID == userID && !s.IsValidAt(now)
	}), nil
}

func (sr *FakeSessionRepo) DeleteStale(_ context.Context, now time.Time) ([]string, error) {
	return sr.deleteWhere(func(s *sessions.Session) bool {
		return !s.IsValidAt(now)
	}), nil
}

// Put stores session as-is, used by tests to seed inactive or expired records.
func (sr *FakeSessionRepo) Put(session *sessions.Session) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	copied := *session
	sr.sessions[session.SessionID] = &copied
}

func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}

func (sr *FakeSessionRepo) deleteWhere(match func(s *sessions.Session) bool) []string {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	ids := make([]string, 0)
	for id, s := range sr.sessions {
		if match(s) {
			delete(sr.sessions, id)
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
