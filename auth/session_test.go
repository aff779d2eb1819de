package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/passman/auth"
	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/krypto"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fakeClock                   { return &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)} }
func newManager(c *fakeClock, limit int) *auth.Manager {
	return auth.NewManager(auth.Config{MaxFailedAttempts: limit, Timeout: 15 * time.Minute, Now: c.Now})
}

const goodPassword = "CorrectHorse1!"

// opener accepts goodPassword and counts how often it was invoked.
type opener struct {
	t     *testing.T
	calls int
}

func (o *opener) open(pw []byte) (*krypto.Context, error) {
	o.calls++
	if string(pw) != goodPassword {
		return nil, pmerr.ErrDecrypt
	}
	var salt krypto.Salt
	cc, err := krypto.DeriveContext(pw, salt)
	require.NoError(o.t, err)
	return cc, nil
}

func TestAuthenticateSuccess(t *testing.T) {
	clock := newClock()
	m := newManager(clock, 3)
	o := &opener{t: t}

	st, sess := m.Status()
	assert.Equal(t, auth.Unauthenticated, st)
	assert.Nil(t, sess)

	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))

	st, sess = m.Status()
	require.Equal(t, auth.Authenticated, st)
	require.NotNil(t, sess)
	assert.True(t, sess.Active)
	assert.Equal(t, 0, sess.FailedAttempts)
	assert.Equal(t, clock.t, sess.CreatedAt)
	assert.Equal(t, clock.t.Add(15*time.Minute), sess.ExpiresAt)
	assert.True(t, sess.ExpiresAt.After(sess.CreatedAt))

	cc, err := m.Context()
	require.NoError(t, err)
	assert.True(t, cc.Alive())

	m.Logout()
	assert.False(t, cc.Alive(), "logout must zeroize the key")
	assert.Equal(t, auth.Unauthenticated, m.State())
	_, err = m.Context()
	assert.ErrorIs(t, err, pmerr.ErrNotAuthenticated)
}

func TestLockoutAfterMaxFailures(t *testing.T) {
	m := newManager(newClock(), 3)
	o := &opener{t: t}

	for i := 1; i <= 3; i++ {
		err := m.Authenticate([]byte("wrong"), o.open)
		assert.ErrorIs(t, err, pmerr.ErrAuthFailed)
		assert.Equal(t, i, m.FailedAttempts())
	}
	assert.Equal(t, auth.LockedOut, m.State())
	assert.Equal(t, 3, o.calls)

	err := m.Authenticate([]byte(goodPassword), o.open)
	assert.ErrorIs(t, err, pmerr.ErrLockedOut)
	assert.Equal(t, pmerr.KindAuthenticationFailed, pmerr.KindOf(err))
	assert.Equal(t, 3, o.calls, "a locked out manager must not derive a key")

	m.Logout()
	assert.Equal(t, auth.Unauthenticated, m.State())
	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	t.Cleanup(m.Logout)
}

func TestSuccessResetsFailures(t *testing.T) {
	m := newManager(newClock(), 3)
	o := &opener{t: t}

	require.Error(t, m.Authenticate([]byte("wrong"), o.open))
	require.Error(t, m.Authenticate([]byte("wrong"), o.open))
	assert.Equal(t, auth.Unauthenticated, m.State())

	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	t.Cleanup(m.Logout)
	assert.Equal(t, 0, m.FailedAttempts())
}

func TestFailureWhileAuthenticatedCanLockOut(t *testing.T) {
	m := newManager(newClock(), 2)
	o := &opener{t: t}

	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	cc, err := m.Context()
	require.NoError(t, err)

	require.Error(t, m.Authenticate([]byte("wrong"), o.open))
	assert.Equal(t, auth.Authenticated, m.State())

	require.Error(t, m.Authenticate([]byte("wrong"), o.open))
	assert.Equal(t, auth.LockedOut, m.State())
	assert.False(t, cc.Alive(), "lockout must zeroize the key")

	_, err = m.Context()
	assert.ErrorIs(t, err, pmerr.ErrLockedOut)
}

func TestNonCryptoErrorsAreNotCounted(t *testing.T) {
	m := newManager(newClock(), 1)

	err := m.Authenticate([]byte("x"), func([]byte) (*krypto.Context, error) {
		return nil, pmerr.ErrVaultNotFound
	})
	assert.ErrorIs(t, err, pmerr.ErrVaultNotFound)
	assert.Equal(t, 0, m.FailedAttempts())
	assert.Equal(t, auth.Unauthenticated, m.State())
}

func TestLazyExpiry(t *testing.T) {
	clock := newClock()
	m := newManager(clock, 3)
	o := &opener{t: t}
	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	cc, err := m.Context()
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	assert.False(t, m.Valid())
	assert.Equal(t, auth.Unauthenticated, m.State())

	_, err = m.Context()
	assert.ErrorIs(t, err, pmerr.ErrSessionExpired)
	assert.False(t, cc.Alive(), "expired session must zeroize the key")

	_, err = m.Context()
	assert.ErrorIs(t, err, pmerr.ErrNotAuthenticated)
}

func TestTouchDoesNotExtend(t *testing.T) {
	clock := newClock()
	m := newManager(clock, 3)
	o := &opener{t: t}
	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	t.Cleanup(m.Logout)
	_, before := m.Status()

	clock.Advance(5 * time.Minute)
	require.NoError(t, m.Touch())

	_, after := m.Status()
	assert.Equal(t, before.ExpiresAt, after.ExpiresAt)
	assert.Equal(t, clock.t, after.LastActivity)
}

func TestExtendUsesLastActivity(t *testing.T) {
	clock := newClock()
	m := newManager(clock, 3)
	o := &opener{t: t}
	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	t.Cleanup(m.Logout)

	clock.Advance(4 * time.Minute)
	require.NoError(t, m.Touch())
	lastActivity := clock.t

	clock.Advance(6 * time.Minute)
	require.NoError(t, m.Extend(30*time.Minute))

	_, sess := m.Status()
	require.NotNil(t, sess)
	assert.Equal(t, lastActivity.Add(30*time.Minute), sess.ExpiresAt)
	assert.Equal(t, 20*time.Minute, sess.Remaining(clock.t))

	assert.True(t, pmerr.Is(m.Extend(0), pmerr.KindInvalidInput))
}

func TestTouchAndExtendRequireSession(t *testing.T) {
	m := newManager(newClock(), 3)

	assert.ErrorIs(t, m.Touch(), pmerr.ErrNotAuthenticated)
	assert.ErrorIs(t, m.Extend(time.Minute), pmerr.ErrNotAuthenticated)
}

func TestEstablishAndRekey(t *testing.T) {
	m := newManager(newClock(), 3)

	first, err := krypto.NewContext([]byte(goodPassword))
	require.NoError(t, err)
	require.NoError(t, m.Establish(first))
	assert.Equal(t, auth.Authenticated, m.State())

	second, err := krypto.NewContext([]byte("Another#Pass9"))
	require.NoError(t, err)
	require.NoError(t, m.Rekey(second))
	assert.False(t, first.Alive(), "rekey must zeroize the previous key")

	got, err := m.Context()
	require.NoError(t, err)
	assert.Same(t, second, got)

	m.Logout()
	assert.False(t, second.Alive())

	dead, err := krypto.NewContext([]byte(goodPassword))
	require.NoError(t, err)
	dead.Destroy()
	assert.ErrorIs(t, m.Establish(dead), pmerr.ErrKeyDestroyed)
}

func TestEstablishRefusedWhenLockedOut(t *testing.T) {
	m := newManager(newClock(), 1)
	o := &opener{t: t}
	require.Error(t, m.Authenticate([]byte("wrong"), o.open))

	cc, err := krypto.NewContext([]byte(goodPassword))
	require.NoError(t, err)
	t.Cleanup(cc.Destroy)
	assert.ErrorIs(t, m.Establish(cc), pmerr.ErrLockedOut)
}

func TestVerifyKeepsSession(t *testing.T) {
	clock := newClock()
	m := newManager(clock, 3)
	o := &opener{t: t}

	require.NoError(t, m.Authenticate([]byte(goodPassword), o.open))
	t.Cleanup(m.Logout)
	_, before := m.Status()
	held, err := m.Context()
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	require.ErrorIs(t, m.Verify([]byte("wrong"), o.open), pmerr.ErrAuthFailed)
	assert.Equal(t, 1, m.FailedAttempts())

	require.NoError(t, m.Verify([]byte(goodPassword), o.open))
	st, after := m.Status()
	require.Equal(t, auth.Authenticated, st)
	assert.Equal(t, before.ExpiresAt, after.ExpiresAt)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, clock.t, after.LastActivity)
	assert.Equal(t, 0, after.FailedAttempts)

	cc, err := m.Context()
	require.NoError(t, err)
	assert.Same(t, held, cc)
	assert.True(t, cc.Alive())

	clock.Advance(5 * time.Minute)
	assert.ErrorIs(t, m.Verify([]byte(goodPassword), o.open), pmerr.ErrSessionExpired)
}

func TestVerifyRequiresSession(t *testing.T) {
	m := newManager(newClock(), 3)
	o := &opener{t: t}
	assert.ErrorIs(t, m.Verify([]byte(goodPassword), o.open), pmerr.ErrNotAuthenticated)
	assert.Equal(t, 0, o.calls)
}
