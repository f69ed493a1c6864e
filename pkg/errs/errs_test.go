package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Run("classified error", func(t *testing.T) {
		err := E(Forbidden, "owner membership is immutable")
		assert.Equal(t, Forbidden, KindOf(err))
	})

	t.Run("wrapped classified error", func(t *testing.T) {
		err := fmt.Errorf("change role: %w", E(Conflict, "membership already exists"))
		assert.Equal(t, Conflict, KindOf(err))
	})

	t.Run("unclassified error", func(t *testing.T) {
		assert.Equal(t, Internal, KindOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Unavailable, cause, "query memberships")

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "query memberships")

	assert.Nil(t, Wrap(NotFound, nil, "no-op"))
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		kind Kind
		pred func(error) bool
	}{
		{Invalid, IsInvalid},
		{Unauthorized, IsUnauthorized},
		{Forbidden, IsForbidden},
		{NotFound, IsNotFound},
		{Conflict, IsConflict},
		{Unavailable, IsUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.True(t, tc.pred(E(tc.kind, "x")))
			assert.False(t, tc.pred(E(Internal, "x")))
			assert.False(t, tc.pred(errors.New("plain")))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "forbidden", Forbidden.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "internal", Internal.String())
	assert.Equal(t, "internal", Kind(99).String())
}
