package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrSessionNotFound, "[Store.Get] session %s", "abc")
	require.EqualError(t, err, "[Store.Get] session abc: session not found")
	require.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
}

type codeErr struct{ code string }

func (c *codeErr) Error() string { return c.code }

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", &codeErr{code: "X"})
	var target *codeErr
	require.True(t, apperrors.As(err, &target))
	require.Equal(t, "X", target.code)
}
