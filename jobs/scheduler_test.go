package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/taskhub-server/jobs"
	"github.com/jrsteele09/taskhub-server/sessions"
	fakesessionrepo "github.com/jrsteele09/taskhub-server/sessions/repofake"
	"github.com/jrsteele09/taskhub-server/token"
	"github.com/jrsteele09/taskhub-server/users"
	fakeuserrepo "github.com/jrsteele09/taskhub-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const retention = 30 * 24 * time.Hour

type sessionConfig struct {
	sweep string
	purge string
}

func (sessionConfig) GetMaxSessionsPerUser() int           { return sessions.MaxSessionsPerUser }
func (c sessionConfig) GetSessionCleanupSchedule() string  { return c.sweep }
func (c sessionConfig) GetUserPurgeSchedule() string       { return c.purge }
func (sessionConfig) GetUserPurgeRetention() time.Duration { return retention }

type testFixture struct {
	now         time.Time
	userRepo    *fakeuserrepo.FakeUserRepo
	sessionRepo *fakesessionrepo.FakeSessionRepo
	store       *sessions.Store
	scheduler   *jobs.Scheduler
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		now:         time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC),
		userRepo:    fakeuserrepo.NewFakeUserRepo(),
		sessionRepo: fakesessionrepo.NewFakeSessionRepo(),
	}
	clock := func() time.Time { return f.now }

	tokens, err := token.New(token.NewHMACSigner("1234"), token.WithNowFunc(clock))
	require.NoError(t, err)
	f.store, err = sessions.NewStore(f.sessionRepo, tokens, sessions.WithNowTime(clock))
	require.NoError(t, err)

	f.scheduler, err = jobs.NewScheduler(f.store, f.userRepo, sessionConfig{sweep: "@every 1h", purge: "@daily"}, jobs.WithNowTime(clock))
	require.NoError(t, err)
	return f
}

func (f *testFixture) createUser(t *testing.T, email string, deletedAgo time.Duration) *users.User {
	t.Helper()
	ctx := context.Background()
	u, err := users.New(email, email, "Password123", f.now.Add(-365*24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.userRepo.Upsert(ctx, u))
	if deletedAgo > 0 {
		require.NoError(t, f.userRepo.SoftDelete(ctx, u.ID, f.now.Add(-deletedAgo)))
	}
	_, err = f.store.CreateSession(ctx, u.ID, sessions.Device{})
	require.NoError(t, err)
	return u
}

func TestNewScheduler_Validation(t *testing.T) {
	f := setupTestFixture(t)

	_, err := jobs.NewScheduler(nil, f.userRepo, sessionConfig{sweep: "@hourly", purge: "@daily"})
	require.Error(t, err)
	_, err = jobs.NewScheduler(f.store, nil, sessionConfig{sweep: "@hourly", purge: "@daily"})
	require.Error(t, err)
	_, err = jobs.NewScheduler(f.store, f.userRepo, sessionConfig{sweep: "not a schedule", purge: "@daily"})
	require.Error(t, err)
	_, err = jobs.NewScheduler(f.store, f.userRepo, sessionConfig{sweep: "*/5 * * * *", purge: "every day"})
	require.Error(t, err)
	_, err = jobs.NewScheduler(f.store, f.userRepo, sessionConfig{sweep: "*/5 * * * *", purge: "0 3 * * *"})
	require.NoError(t, err)
}

func TestSweepSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.sessionRepo.Put(&sessions.Session{SessionID: "expired", UserID: "u-1", IsActive: true, ExpiresAt: f.now.Add(-time.Minute)})
	f.sessionRepo.Put(&sessions.Session{SessionID: "inactive", UserID: "u-1", IsActive: false, ExpiresAt: f.now.Add(time.Hour)})
	f.sessionRepo.Put(&sessions.Session{SessionID: "live", UserID: "u-1", IsActive: true, ExpiresAt: f.now.Add(time.Hour)})

	n, err := f.scheduler.SweepSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, 1, f.sessionRepo.Len())
}

func TestPurgeDeletedUsers(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	stale := f.createUser(t, "stale@example.com", retention+24*time.Hour)
	recent := f.createUser(t, "recent@example.com", 24*time.Hour)
	active := f.createUser(t, "active@example.com", 0)

	n, err := f.scheduler.PurgeDeletedUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = f.userRepo.GetByID(ctx, stale.ID)
	require.Error(t, err)
	remaining, err := f.store.GetUserActiveSessions(ctx, stale.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)

	for _, kept := range []*users.User{recent, active} {
		_, err = f.userRepo.GetByID(ctx, kept.ID)
		require.NoError(t, err)
		remaining, err = f.store.GetUserActiveSessions(ctx, kept.ID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
	}
}

type flakyCleaner struct {
	failFor string
	swept   atomic.Int64
}

func (c *flakyCleaner) CleanupExpiredSessions(context.Context) (int64, error) {
	c.swept.Add(1)
	return 0, nil
}

func (c *flakyCleaner) InvalidateAllUserSessions(_ context.Context, userID string) (int64, error) {
	if userID == c.failFor {
		return 0, errors.New("sessions collection unavailable")
	}
	return 0, nil
}

func TestPurgeDeletedUsers_KeepsUserWhenSessionsRemain(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	blocked := f.createUser(t, "blocked@example.com", retention+time.Hour)
	purged := f.createUser(t, "purged@example.com", retention+time.Hour)

	cleaner := &flakyCleaner{failFor: blocked.ID}
	scheduler, err := jobs.NewScheduler(cleaner, f.userRepo, sessionConfig{sweep: "@hourly", purge: "@daily"}, jobs.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)

	n, err := scheduler.PurgeDeletedUsers(ctx)
	require.Error(t, err)
	require.Equal(t, int64(1), n)

	_, err = f.userRepo.GetByID(ctx, blocked.ID)
	require.NoError(t, err)
	_, err = f.userRepo.GetByID(ctx, purged.ID)
	require.Error(t, err)
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	f := setupTestFixture(t)
	cleaner := &flakyCleaner{}

	scheduler, err := jobs.NewScheduler(cleaner, f.userRepo, sessionConfig{sweep: "@every 1s", purge: "@daily"})
	require.NoError(t, err)

	scheduler.Start(context.Background())
	scheduler.Start(context.Background())
	require.Eventually(t, func() bool { return cleaner.swept.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	scheduler.Stop(ctx)
	scheduler.Stop(ctx)
}
