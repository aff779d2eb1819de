//go:build unix

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

func TestLockIsExclusive(t *testing.T) {
	s, _ := newStore(t, "default")

	l1, err := s.Lock()
	require.NoError(t, err)

	_, err = s.Lock()
	assert.ErrorIs(t, err, pmerr.ErrVaultBusy)

	require.NoError(t, l1.Release())
	require.NoError(t, l1.Release())

	l2, err := s.Lock()
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
