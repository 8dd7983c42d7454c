package users_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/users"
	fakeuserrepo "github.com/jrsteele09/taskhub-server/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Password123", false},
		{"too short", "Pa1", true},
		{"no upper", "password123", true},
		{"no lower", "PASSWORD123", true},
		{"no number", "Passwordabc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.ErrorIs(t, err, apperrors.ErrWeakPassword)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewUser(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	u, err := users.New(" Jane@Example.com ", "jane", "Password123", now)
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", u.Email)
	require.NotEmpty(t, u.ID)
	require.True(t, u.IsActive)
	require.False(t, u.IsVerified)
	require.True(t, u.CheckPassword("Password123"))
	require.False(t, u.CheckPassword("Password124"))

	_, err = users.New("x@example.com", "x", "weak", now)
	require.Error(t, err)
}

func TestUserSanitizedAndJSON(t *testing.T) {
	expires := time.Now()
	u := &users.User{
		ID:                     "u1",
		Email:                  "a@example.com",
		PasswordHash:           "secret-hash",
		PasswordResetTokenHash: "secret-reset",
		PasswordResetExpiresAt: &expires,
	}
	s := u.Sanitized()
	require.Empty(t, s.PasswordHash)
	require.Empty(t, s.PasswordResetTokenHash)
	require.Nil(t, s.PasswordResetExpiresAt)
	require.Equal(t, "secret-hash", u.PasswordHash)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(b), "secret-hash")
	require.NotContains(t, string(b), "secret-reset")
}

func TestRoleRefNilSafe(t *testing.T) {
	var u *users.User
	require.Equal(t, "", u.RoleRef())
	require.Equal(t, "r1", (&users.User{RoleID: "r1"}).RoleRef())
}

func TestCanLogin(t *testing.T) {
	require.True(t, (&users.User{IsActive: true}).CanLogin())
	require.False(t, (&users.User{IsActive: false}).CanLogin())
	require.False(t, (&users.User{IsActive: true, IsDeleted: true}).CanLogin())
}

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	u, err := users.New("bob@example.com", "bob", "Password123", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, u))

	byEmail, err := repo.GetByIdentifier(ctx, "BOB@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byName, err := repo.GetByIdentifier(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	_, err = repo.GetByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	login := time.Now()
	require.NoError(t, repo.SetLoggedIn(ctx, u.ID, true, login))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsLoggedIn)
	require.Equal(t, users.StatusActive, got.Status)
	require.Equal(t, login, got.LastLogin)

	require.NoError(t, repo.SetResetToken(ctx, u.ID, "tokenhash", login.Add(time.Hour)))
	got, err = repo.GetByResetTokenHash(ctx, "tokenhash")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	require.NoError(t, repo.SetPassword(ctx, u.ID, "newhash"))
	_, err = repo.GetByResetTokenHash(ctx, "tokenhash")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	deletedAt := login.Add(-48 * time.Hour)
	require.NoError(t, repo.SoftDelete(ctx, u.ID, deletedAt))
	purge, err := repo.ListDeletedBefore(ctx, login.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, purge, 1)

	require.NoError(t, repo.Delete(ctx, u.ID))
	require.NoError(t, repo.Delete(ctx, u.ID))
	require.ErrorIs(t, repo.SetRole(ctx, u.ID, "r"), apperrors.ErrUserNotFound)
}

func TestFakeUserRepo_IdentifiersAreUnambiguous(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	alice, err := users.New("alice@example.com", "alice", "Password123", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, alice))

	sameName, err := users.New("other@example.com", "alice", "Password456", time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, repo.Upsert(ctx, sameName), apperrors.ErrUserExists)

	sameEmail, err := users.New("ALICE@example.com", "alice2", "Password456", time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, repo.Upsert(ctx, sameEmail), apperrors.ErrUserExists)

	// Re-saving the same user is not a collision.
	alice.FirstName = "Alice"
	require.NoError(t, repo.Upsert(ctx, alice))

	// A username spelled like another account's email never wins over that email.
	lookalike, err := users.New("mallory@example.com", "alice@example.com", "Password456", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, lookalike))
	for i := 0; i < 20; i++ {
		got, err := repo.GetByIdentifier(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)
	}

	_, err = repo.GetByIdentifier(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
