package mongouserrepo_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/store/mongodb/mongotest"
	"github.com/jrsteele09/taskhub-server/users"
	mongouserrepo "github.com/jrsteele09/taskhub-server/users/mongorepo"
	"github.com/stretchr/testify/require"
)

func TestMongoUserRepo(t *testing.T) {
	db := mongotest.Database(t)
	ctx := context.Background()

	repo, err := mongouserrepo.New(ctx, db)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	u, err := users.New("carol@example.com", "carol", "Password123", now)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, u))

	got, err := repo.GetByIdentifier(ctx, "Carol@Example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.CheckPassword("Password123"))

	require.NoError(t, repo.SetRole(ctx, u.ID, "role-1"))
	require.NoError(t, repo.SetLoggedIn(ctx, u.ID, true, now))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "role-1", got.RoleID)
	require.Equal(t, users.StatusActive, got.Status)

	require.NoError(t, repo.SetResetToken(ctx, u.ID, "h", now.Add(time.Hour)))
	_, err = repo.GetByResetTokenHash(ctx, "h")
	require.NoError(t, err)
	require.NoError(t, repo.SetPassword(ctx, u.ID, "x"))
	_, err = repo.GetByResetTokenHash(ctx, "h")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	require.NoError(t, repo.SoftDelete(ctx, u.ID, now.Add(-time.Hour)))
	list, err := repo.ListDeletedBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestMongoUserRepo_IdentifiersAreUnambiguous(t *testing.T) {
	db := mongotest.Database(t)
	ctx := context.Background()

	repo, err := mongouserrepo.New(ctx, db)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	alice, err := users.New("alice@example.com", "alice", "Password123", now)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, alice))

	sameName, err := users.New("other@example.com", "alice", "Password456", now)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Upsert(ctx, sameName), apperrors.ErrUserExists)

	lookalike, err := users.New("mallory@example.com", "alice@example.com", "Password456", now)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, lookalike))

	got, err := repo.GetByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	// Users without a username do not collide with each other.
	for _, email := range []string{"x@example.com", "y@example.com"} {
		u, err := users.New(email, "", "Password123", now)
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, u))
	}
}
