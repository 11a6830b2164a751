package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithClaims_ReleasesOnWriteFailure(t *testing.T) {
	claims := []loginClaim{
		{"users_by_email", "email", "achieng@example.com"},
		{"users_by_phone", "phone", "0712345678"},
	}
	var taken, released []string
	boom := errors.New("write timeout")

	err := withClaims(claims,
		func(c loginClaim) error { taken = append(taken, c.value); return nil },
		func(c loginClaim) { released = append(released, c.value) },
		func() error { return boom },
	)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"achieng@example.com", "0712345678"}, taken)
	assert.Equal(t, []string{"0712345678", "achieng@example.com"}, released)
}

func TestWithClaims_ReleasesEarlierClaims(t *testing.T) {
	claims := []loginClaim{
		{"users_by_email", "email", "achieng@example.com"},
		{"users_by_phone", "phone", "0712345678"},
	}
	var released []string
	wrote := false

	err := withClaims(claims,
		func(c loginClaim) error {
			if c.column == "phone" {
				return ErrDuplicate
			}
			return nil
		},
		func(c loginClaim) { released = append(released, c.value) },
		func() error { wrote = true; return nil },
	)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.False(t, wrote)
	assert.Equal(t, []string{"achieng@example.com"}, released)
}

func TestWithClaims_KeepsClaimsOnSuccess(t *testing.T) {
	var released int
	err := withClaims([]loginClaim{{"users_by_email", "email", "a@b.c"}},
		func(loginClaim) error { return nil },
		func(loginClaim) { released++ },
		func() error { return nil },
	)
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestRetryCAS(t *testing.T) {
	t.Run("applies after losing a race", func(t *testing.T) {
		calls := 0
		err := retryCAS(maxStatsAttempts, func() (bool, error) {
			calls++
			return calls == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := retryCAS(maxStatsAttempts, func() (bool, error) {
			calls++
			return false, nil
		})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, maxStatsAttempts, calls)
	})

	t.Run("stops on error", func(t *testing.T) {
		calls := 0
		err := retryCAS(maxStatsAttempts, func() (bool, error) {
			calls++
			return false, ErrNotFound
		})
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, calls)
	})
}
