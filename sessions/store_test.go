package sessions_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/taskhub-server/sessions"
	fakesessionrepo "github.com/jrsteele09/taskhub-server/sessions/repofake"
	"github.com/jrsteele09/taskhub-server/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID  = "user-1"
	otherUserID = "user-2"
	chromeUA    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type recordingListener struct {
	mu         sync.Mutex
	closed     []string
	userClosed []string
}

func (l *recordingListener) SessionsClosed(ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, ids...)
}

func (l *recordingListener) UserSessionsClosed(userID, except string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.userClosed = append(l.userClosed, userID+"/"+except)
}

type testFixture struct {
	now      time.Time
	repo     *fakesessionrepo.FakeSessionRepo
	tokens   *token.Manager
	listener *recordingListener
	store    *sessions.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:      time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		repo:     fakesessionrepo.NewFakeSessionRepo(),
		listener: &recordingListener{},
	}
	clock := func() time.Time { return f.now }

	tokens, err := token.New(token.NewHMACSigner("1234"), token.WithNowFunc(clock), token.WithTokenExpiry(time.Hour))
	require.NoError(t, err)
	f.tokens = tokens

	store, err := sessions.NewStore(f.repo, tokens, sessions.WithNowTime(clock), sessions.WithListener(f.listener))
	require.NoError(t, err)
	f.store = store
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *testFixture) login(t *testing.T, userID string) string {
	t.Helper()
	id, err := f.store.CreateSession(context.Background(), userID, sessions.ParseDevice(chromeUA, "10.0.0.1"))
	require.NoError(t, err)
	return id
}

func sessionIDs(list []*sessions.Session) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.SessionID)
	}
	return ids
}

func TestNewStoreRequiresDependencies(t *testing.T) {
	_, err := sessions.NewStore(nil, nil)
	require.Error(t, err)
	_, err = sessions.NewStore(fakesessionrepo.NewFakeSessionRepo(), nil)
	require.Error(t, err)
}

func TestCreateSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	id := f.login(t, testUserID)
	require.NotEmpty(t, id)

	s, err := f.store.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, testUserID, s.UserID)
	require.True(t, s.IsActive)
	require.Equal(t, f.now, s.LastActivity)
	require.Equal(t, f.now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())
	require.Equal(t, "Chrome", s.Device.Browser)

	claims := f.tokens.Verify(s.AccessToken)
	require.NotNil(t, claims)
	require.Equal(t, id, claims.SessionID)
	require.Equal(t, testUserID, claims.UserID)
}

func TestCreateSession_RequiresUser(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.store.CreateSession(context.Background(), "", sessions.Device{})
	require.Error(t, err)
}

func TestCreateSession_CapInvariant(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		f.login(t, testUserID)
		f.advance(time.Minute)

		active, err := f.store.GetUserActiveSessions(ctx, testUserID)
		require.NoError(t, err)
		require.LessOrEqual(t, len(active), sessions.MaxSessionsPerUser)
	}
}

func TestCreateSession_EvictsLeastRecentlyActive(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	a := f.login(t, testUserID)
	f.advance(time.Minute)
	b := f.login(t, testUserID)
	f.advance(time.Minute)

	// A becomes the most recently active, so B is now the eviction candidate.
	touched, err := f.store.ValidateSession(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, touched)
	f.advance(time.Minute)

	c := f.login(t, testUserID)

	active, err := f.store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []string{c, a}, sessionIDs(active))
	require.Equal(t, []string{b}, f.listener.closed)
}

func TestCreateSession_EndToEndOrder(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s1 := f.login(t, testUserID)
	f.advance(time.Minute)
	s2 := f.login(t, testUserID)
	f.advance(time.Minute)
	s3 := f.login(t, testUserID)

	_, err := f.store.GetSession(ctx, s1)
	require.Error(t, err)

	active, err := f.store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []string{s3, s2}, sessionIDs(active))
}

func TestCreateSession_TieBreakIsDeterministic(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first := f.login(t, testUserID)
	second := f.login(t, testUserID)
	third := f.login(t, testUserID)

	active, err := f.store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []string{third, second}, sessionIDs(active))
	require.Equal(t, []string{first}, f.listener.closed)
}

func TestCreateSession_RemovesStaleSessions(t *testing.T) {
	f := setupTestFixture(t)
	f.repo.Put(&sessions.Session{SessionID: "old-inactive", UserID: testUserID, IsActive: false, ExpiresAt: f.now.Add(time.Hour)})
	f.repo.Put(&sessions.Session{SessionID: "old-expired", UserID: testUserID, IsActive: true, ExpiresAt: f.now.Add(-time.Minute)})
	f.repo.Put(&sessions.Session{SessionID: "other-user", UserID: otherUserID, IsActive: false, ExpiresAt: f.now})

	f.login(t, testUserID)
	require.Equal(t, 2, f.repo.Len())
	require.Equal(t, []string{"old-expired", "old-inactive"}, f.listener.closed)
}

func TestCreateSession_CustomCap(t *testing.T) {
	f := setupTestFixture(t)
	store, err := sessions.NewStore(f.repo, f.tokens, sessions.WithMaxSessions(1), sessions.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.Equal(t, 1, store.MaxSessions())

	ctx := context.Background()
	_, err = store.CreateSession(ctx, testUserID, sessions.Device{})
	require.NoError(t, err)
	f.advance(time.Second)
	latest, err := store.CreateSession(ctx, testUserID, sessions.Device{})
	require.NoError(t, err)

	active, err := store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []string{latest}, sessionIDs(active))
}

func TestCreateSession_ConcurrentLoginsRespectCap(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.CreateSession(ctx, testUserID, sessions.Device{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := f.store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, active, sessions.MaxSessionsPerUser)
}

func TestValidateSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	id := f.login(t, testUserID)

	f.advance(10 * time.Minute)
	s, err := f.store.ValidateSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, f.now, s.LastActivity)

	t.Run("unknown", func(t *testing.T) {
		s, err := f.store.ValidateSession(ctx, "nope")
		require.NoError(t, err)
		require.Nil(t, s)
	})

	t.Run("empty", func(t *testing.T) {
		s, err := f.store.ValidateSession(ctx, "")
		require.NoError(t, err)
		require.Nil(t, s)
	})

	t.Run("inactive", func(t *testing.T) {
		f.repo.Put(&sessions.Session{SessionID: "inactive", UserID: testUserID, ExpiresAt: f.now.Add(time.Hour)})
		s, err := f.store.ValidateSession(ctx, "inactive")
		require.NoError(t, err)
		require.Nil(t, s)
	})

	t.Run("expired", func(t *testing.T) {
		f.advance(2 * time.Hour)
		s, err := f.store.ValidateSession(ctx, id)
		require.NoError(t, err)
		require.Nil(t, s)
	})
}

func TestIssueAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	id := f.login(t, testUserID)

	f.advance(time.Minute)
	raw, expiresAt, err := f.store.IssueAccessToken(ctx, id)
	require.NoError(t, err)

	s, err := f.store.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, raw, s.AccessToken)
	require.Equal(t, expiresAt, s.ExpiresAt)

	require.NoError(t, f.store.InvalidateSession(ctx, id))
	_, _, err = f.store.IssueAccessToken(ctx, id)
	require.Error(t, err)
}

func TestInvalidateSession_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	id := f.login(t, testUserID)

	require.NoError(t, f.store.InvalidateSession(ctx, id))
	require.NoError(t, f.store.InvalidateSession(ctx, id))

	s, err := f.store.ValidateSession(ctx, id)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestInvalidateOtherUserSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s1 := f.login(t, testUserID)
	f.advance(time.Minute)
	s2 := f.login(t, testUserID)
	other := f.login(t, otherUserID)

	n, err := f.store.InvalidateOtherUserSessions(ctx, testUserID, s2)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	active, err := f.store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []string{s2}, sessionIDs(active))

	s, err := f.store.ValidateSession(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, s)

	gone, err := f.store.ValidateSession(ctx, s1)
	require.NoError(t, err)
	require.Nil(t, gone)
	require.Equal(t, []string{testUserID + "/" + s2}, f.listener.userClosed)

	_, err = f.store.InvalidateOtherUserSessions(ctx, testUserID, "")
	require.Error(t, err)
}

func TestInvalidateAllUserSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.login(t, testUserID)
	f.advance(time.Minute)
	f.login(t, testUserID)
	f.login(t, otherUserID)

	n, err := f.store.InvalidateAllUserSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	active, err := f.store.GetUserActiveSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Empty(t, active)

	others, err := f.store.GetUserActiveSessions(ctx, otherUserID)
	require.NoError(t, err)
	require.Len(t, others, 1)
}

func TestCleanupExpiredSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	live := f.login(t, testUserID)
	f.repo.Put(&sessions.Session{SessionID: "inactive", UserID: otherUserID, ExpiresAt: f.now.Add(time.Hour)})
	f.repo.Put(&sessions.Session{SessionID: "expired", UserID: otherUserID, IsActive: true, ExpiresAt: f.now.Add(-time.Second)})

	n, err := f.store.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, []string{"expired", "inactive"}, f.listener.closed)

	s, err := f.store.ValidateSession(ctx, live)
	require.NoError(t, err)
	require.NotNil(t, s)

	n, err = f.store.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestViews(t *testing.T) {
	list := []*sessions.Session{{SessionID: "a"}, {SessionID: "b"}}
	views := sessions.Views(list, "b")
	require.Len(t, views, 2)
	require.False(t, views[0].Current)
	require.True(t, views[1].Current)
}

func TestParseDevice(t *testing.T) {
	d := sessions.ParseDevice(chromeUA, "192.168.1.5")
	require.Equal(t, "Chrome", d.Browser)
	require.Equal(t, "120.0.0.0", d.BrowserVersion)
	require.Equal(t, "192.168.1.5", d.IP)
	require.False(t, d.IsMobile)
	require.False(t, d.IsBot)

	empty := sessions.ParseDevice("", "1.1.1.1")
	require.Empty(t, empty.Browser)
	require.Equal(t, "1.1.1.1", empty.IP)
}

func TestCleanupExpiredSessions_ReportsLapsedSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	id := f.login(t, testUserID)
	f.advance(2 * time.Hour)

	n, err := f.store.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, []string{id}, f.listener.closed)
}

// callbackListener runs onClose once for the first non-empty notification.
type callbackListener struct {
	fired   atomic.Bool
	onClose func()
}

func (l *callbackListener) SessionsClosed(ids ...string) {
	if len(ids) > 0 && l.fired.CompareAndSwap(false, true) {
		l.onClose()
	}
}

func (l *callbackListener) UserSessionsClosed(string, string) {
	if l.fired.CompareAndSwap(false, true) {
		l.onClose()
	}
}

func TestListenerIsNotifiedOutsideUserLock(t *testing.T) {
	tests := map[string]func(t *testing.T, store *sessions.Store){
		"eviction": func(t *testing.T, store *sessions.Store) {
			for i := 0; i < 3; i++ {
				_, err := store.CreateSession(context.Background(), testUserID, sessions.Device{})
				require.NoError(t, err)
			}
		},
		"invalidate all": func(t *testing.T, store *sessions.Store) {
			_, err := store.CreateSession(context.Background(), testUserID, sessions.Device{})
			require.NoError(t, err)
			_, err = store.InvalidateAllUserSessions(context.Background(), testUserID)
			require.NoError(t, err)
		},
	}

	for name, run := range tests {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)
			var store *sessions.Store
			acquired := make(chan bool, 1)

			// A listener that needs the same user's lock must not wait on the caller.
			listener := &callbackListener{onClose: func() {
				done := make(chan struct{})
				go func() {
					defer close(done)
					_, _ = store.CreateSession(context.Background(), testUserID, sessions.Device{})
				}()
				select {
				case <-done:
					acquired <- true
				case <-time.After(time.Second):
					acquired <- false
				}
			}}

			var err error
			store, err = sessions.NewStore(f.repo, f.tokens, sessions.WithNowTime(func() time.Time { return f.now }), sessions.WithListener(listener))
			require.NoError(t, err)

			run(t, store)
			select {
			case ok := <-acquired:
				require.True(t, ok)
			default:
				t.Fatal("listener was not notified")
			}
		})
	}
}
