package mongosessionrepo_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/sessions"
	mongosessionrepo "github.com/jrsteele09/taskhub-server/sessions/mongorepo"
	"github.com/jrsteele09/taskhub-server/store/mongodb/mongotest"
	"github.com/stretchr/testify/require"
)

func TestMongoSessionRepo(t *testing.T) {
	db := mongotest.Database(t)
	ctx := context.Background()

	repo, err := mongosessionrepo.New(ctx, db)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	insert := func(id, user string, lastActivity time.Time, seq int64, active bool, expiresAt time.Time) {
		require.NoError(t, repo.Insert(ctx, &sessions.Session{
			SessionID:    id,
			UserID:       user,
			IsActive:     active,
			LastActivity: lastActivity,
			CreatedAt:    lastActivity,
			ExpiresAt:    expiresAt,
			Seq:          seq,
		}))
	}

	insert("s1", "u1", now.Add(-2*time.Minute), 1, true, now.Add(time.Hour))
	insert("s2", "u1", now.Add(-time.Minute), 2, true, now.Add(time.Hour))
	insert("s3", "u1", now.Add(-time.Minute), 3, true, now.Add(time.Hour))
	insert("stale", "u1", now, 4, false, now.Add(time.Hour))
	insert("other", "u2", now, 5, true, now.Add(time.Hour))

	list, err := repo.ListActiveByUser(ctx, "u1", now)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "s3", list[0].SessionID)
	require.Equal(t, "s2", list[1].SessionID)
	require.Equal(t, "s1", list[2].SessionID)

	touched, err := repo.Touch(ctx, "s1", now)
	require.NoError(t, err)
	require.Equal(t, now, touched.LastActivity.UTC())

	missing, err := repo.Touch(ctx, "stale", now)
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.SetAccessToken(ctx, "s1", "tok", now.Add(2*time.Hour), now))
	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "tok", got.AccessToken)

	staleIDs, err := repo.DeleteStaleByUser(ctx, "u1", now)
	require.NoError(t, err)
	require.Equal(t, []string{"stale"}, staleIDs)

	n, err := repo.DeleteMany(ctx, []string{"s2", "missing"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = repo.DeleteByUser(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, "s1"))
	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	staleIDs, err = repo.DeleteStale(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"other"}, staleIDs)
}
