package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/taskhub-server/token"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

type testFixture struct {
	now     time.Time
	manager *token.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m, err := token.New(token.NewHMACSigner(secretStr),
		token.WithTokenExpiry(time.Hour),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestIssueAndVerify(t *testing.T) {
	f := setupTestFixture(t)

	raw, expiresAt, err := f.manager.Issue("user-1", "session-1")
	require.NoError(t, err)
	require.Equal(t, f.now.Add(time.Hour).Unix(), expiresAt.Unix())

	claims := f.manager.Verify(raw)
	require.NotNil(t, claims)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "session-1", claims.SessionID)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	require.Equal(t, f.now.Unix(), claims.IssuedAt.Unix())
}

func TestIssueUniqueJTI(t *testing.T) {
	f := setupTestFixture(t)

	a, _, err := f.manager.Issue("user-1", "session-1")
	require.NoError(t, err)
	b, _, err := f.manager.Issue("user-1", "session-1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestIssueRequiresIDs(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.manager.Issue("", "session-1")
	require.Error(t, err)
	_, _, err = f.manager.Issue("user-1", "")
	require.Error(t, err)
}

func TestVerifyRejects(t *testing.T) {
	f := setupTestFixture(t)
	raw, _, err := f.manager.Issue("user-1", "session-1")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		require.Nil(t, f.manager.Verify(""))
	})

	t.Run("malformed", func(t *testing.T) {
		require.Nil(t, f.manager.Verify("not.a.token"))
	})

	t.Run("tampered payload", func(t *testing.T) {
		other, _, err := f.manager.Issue("user-2", "session-1")
		require.NoError(t, err)
		parts := strings.Split(raw, ".")
		otherParts := strings.Split(other, ".")
		require.Len(t, parts, 3)
		require.Len(t, otherParts, 3)
		forged := strings.Join([]string{parts[0], otherParts[1], parts[2]}, ".")
		require.Nil(t, f.manager.Verify(forged))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := token.New(token.NewHMACSigner("other"), token.WithNowFunc(func() time.Time { return f.now }))
		require.NoError(t, err)
		require.Nil(t, other.Verify(raw))
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
			"sub": "user-1",
			"sid": "session-1",
			"iat": f.now.Unix(),
			"exp": f.now.Add(time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte(secretStr))
		require.NoError(t, err)
		require.Nil(t, f.manager.Verify(signed))
	})

	t.Run("missing session claim", func(t *testing.T) {
		signed, err := token.NewHMACSigner(secretStr).Sign(jwt.MapClaims{
			"sub": "user-1",
			"iat": f.now.Unix(),
			"exp": f.now.Add(time.Hour).Unix(),
		})
		require.NoError(t, err)
		require.Nil(t, f.manager.Verify(signed))
	})

	t.Run("expired", func(t *testing.T) {
		saved := f.now
		f.now = f.now.Add(2 * time.Hour)
		defer func() { f.now = saved }()
		require.Nil(t, f.manager.Verify(raw))
	})
}

func TestNewRequiresSigner(t *testing.T) {
	_, err := token.New(nil)
	require.Error(t, err)
}

func TestRandomSecret(t *testing.T) {
	_, err := token.RandomSecret(8)
	require.Error(t, err)

	first, err := token.RandomSecret(32)
	require.NoError(t, err)
	second, err := token.RandomSecret(32)
	require.NoError(t, err)
	require.Len(t, first, 64)
	require.NotEqual(t, first, second)

	// A token minted under one process secret does not verify under another.
	issuer, err := token.New(token.NewHMACSigner(first))
	require.NoError(t, err)
	verifier, err := token.New(token.NewHMACSigner(second))
	require.NoError(t, err)
	raw, _, err := issuer.Issue("user-1", "session-1")
	require.NoError(t, err)
	require.NotNil(t, issuer.Verify(raw))
	require.Nil(t, verifier.Verify(raw))
}
