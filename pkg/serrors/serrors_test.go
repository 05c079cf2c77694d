package serrors_test

import (
	"errors"
	"testing"

	"certwatch/pkg/serrors"

	"github.com/stretchr/testify/require"
)

type customError struct{ msg string }

func (e customError) Error() string { return e.msg }

func TestDefaultKindsDistinct(t *testing.T) {
	kinds := []serrors.Kind{
		serrors.ErrTimeout,
		serrors.ErrRateLimited,
		serrors.ErrUnavailable,
		serrors.ErrMalformed,
		serrors.ErrUnreachable,
		serrors.ErrPersistence,
		serrors.ErrNotFound,
		serrors.ErrBadRequest,
		serrors.ErrUnauthorized,
		serrors.ErrInternal,
	}
	seen := map[serrors.Kind]bool{}
	for i, k := range kinds {
		require.NotNil(t, k, "kind at index %d is nil", i)
		require.False(t, seen[k], "kind at index %d is duplicate: %v", i, k)
		seen[k] = true
	}

	// Ensure some expected inequalities
	require.NotEqual(t, serrors.ErrTimeout, serrors.ErrUnavailable, "Timeout should not equal Unavailable")
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("connection refused")

	e1 := serrors.With(serrors.ErrNotFound, "domain %q not monitored", "example.com")
	require.Equal(t, `domain "example.com" not monitored`, e1.Error(), "With() Error() mismatch")

	e2 := serrors.Wrap(serrors.ErrUnreachable, base, "querying log")
	require.Equal(t, "querying log: connection refused", e2.Error(), "Wrap() Error() mismatch")

	e3 := serrors.KindOnly(serrors.ErrRateLimited)
	require.Equal(t, "RATE_LIMITED", e3.Error(), "KindOnly Error() mismatch")
}

func TestIsMatchesKindAndWrapped(t *testing.T) {
	base := customError{"root cause"}
	e := serrors.Wrap(serrors.ErrPersistence, base, "writing entry")

	require.ErrorIs(t, e, serrors.ErrPersistence)
	require.ErrorIs(t, e, base)
	require.NotErrorIs(t, e, serrors.ErrTimeout, "errors.Is should not match a different kind")
}

func TestAsMatchesKindAndWrapped(t *testing.T) {
	base := &customError{"root cause"}
	e := serrors.Wrap(serrors.ErrMalformed, base, "decoding response")

	var k serrors.Kind
	require.ErrorAs(t, e, &k, "errors.As should extract Kind")
	require.Equal(t, serrors.ErrMalformed, k)

	var ce *customError
	require.ErrorAs(t, e, &ce, "errors.As should extract wrapped error type")
	require.Equal(t, base, ce, "extracted cause pointer mismatch")
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	require.Equal(t, serrors.ErrUnavailable,
		serrors.KindOf(serrors.Wrap(serrors.ErrUnavailable, base, "fetching")))

	// plumbing wrappers should not hide the kind
	wrapped := errors.Join(serrors.With(serrors.ErrTimeout, "deadline"), base)
	require.Equal(t, serrors.ErrTimeout, serrors.KindOf(wrapped))

	require.Nil(t, serrors.KindOf(base), "plain errors carry no kind")
	require.Nil(t, serrors.KindOf(nil))
}

func TestAccessors(t *testing.T) {
	base := errors.New("boom")
	e := serrors.Wrap(serrors.ErrUnauthorized, base, "bad password")
	require.Equal(t, serrors.ErrUnauthorized, e.Kind())
	require.Equal(t, "bad password", e.Message())
	require.Equal(t, base, e.Cause())
}
