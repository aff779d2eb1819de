package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/krypto"
)

const (
	// DefaultMaxFailedAttempts is the lockout threshold.
	DefaultMaxFailedAttempts = 5
	// DefaultTimeout is the lifetime of a fresh session.
	DefaultTimeout = 15 * time.Minute
)

// State is the authentication state of a Manager.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	LockedOut
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case LockedOut:
		return "locked out"
	default:
		return "unauthenticated"
	}
}

// Session is a snapshot of the current session.
type Session struct {
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActivity   time.Time
	Active         bool
	FailedAttempts int
}

// Valid reports whether the session is active and unexpired at now.
func (s Session) Valid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// Remaining returns the time left before expiry, or zero.
func (s Session) Remaining(now time.Time) time.Duration {
	if !s.Valid(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// Config tunes a Manager.
type Config struct {
	MaxFailedAttempts int
	Timeout           time.Duration
	Now               func() time.Time
	Logger            zerolog.Logger
}

// Opener verifies a password by deriving the vault key and decrypting the
// vault. It returns the context that owns the derived key.
type Opener func(password []byte) (*krypto.Context, error)

// Manager tracks authentication state, session expiry and failed-attempt
// lockout. It owns the crypto context of the open vault and hands it out only
// while the state is Authenticated.
type Manager struct {
	mu      sync.Mutex
	max     int
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	session *Session
	cc      *krypto.Context
}

// NewManager returns a Manager in the Unauthenticated state. Zero values in
// cfg fall back to the defaults.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		max:     cfg.MaxFailedAttempts,
		timeout: cfg.Timeout,
		now:     cfg.Now,
		log:     cfg.Logger,
	}
	if m.max <= 0 {
		m.max = DefaultMaxFailedAttempts
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Status returns the current state. The session is non-nil only when the
// state is Authenticated.
func (m *Manager) Status() (State, *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked()
	if st != Authenticated {
		return st, nil
	}
	snap := *m.session
	return st, &snap
}

// State returns the current state.
func (m *Manager) State() State {
	st, _ := m.Status()
	return st
}

// Valid reports whether the manager is Authenticated right now.
func (m *Manager) Valid() bool {
	return m.State() == Authenticated
}

// FailedAttempts returns the number of consecutive failed attempts.
func (m *Manager) FailedAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return 0
	}
	return m.session.FailedAttempts
}

func (m *Manager) stateLocked() State {
	switch {
	case m.session == nil:
		return Unauthenticated
	case m.session.FailedAttempts >= m.max:
		return LockedOut
	case m.session.Valid(m.now()) && m.cc.Alive():
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Authenticate verifies password through open. A LockedOut manager fails
// immediately without calling open. Crypto and authentication failures from
// open count towards the lockout threshold and are reported as ErrAuthFailed;
// any other error is returned as is and not counted.
func (m *Manager) Authenticate(password []byte, open Opener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateLocked() == LockedOut {
		m.log.Warn().Msg("authentication refused: locked out")
		return pmerr.ErrLockedOut
	}

	cc, err := open(password)
	if err != nil {
		kind := pmerr.KindOf(err)
		if kind != pmerr.KindCrypto && kind != pmerr.KindAuthenticationFailed {
			return err
		}
		return m.recordFailureLocked()
	}

	m.replaceContextLocked(cc)
	m.session = m.newSessionLocked()
	m.log.Info().Time("expires_at", m.session.ExpiresAt).Msg("session started")
	return nil
}

// Verify re-checks password through open for an Authenticated manager without
// starting a new session: the expiry and the held context stay as they are.
// Failures count towards lockout like Authenticate; a success clears them.
func (m *Manager) Verify(password []byte, open Opener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(); err != nil {
		return err
	}

	cc, err := open(password)
	if err != nil {
		kind := pmerr.KindOf(err)
		if kind != pmerr.KindCrypto && kind != pmerr.KindAuthenticationFailed {
			return err
		}
		return m.recordFailureLocked()
	}
	if cc != m.cc {
		cc.Destroy()
	}
	m.session.FailedAttempts = 0
	m.session.LastActivity = m.now()
	return nil
}

// Establish starts a session for a vault that was just created with cc. It is
// the only way to authenticate without an existing vault file.
func (m *Manager) Establish(cc *krypto.Context) error {
	if !cc.Alive() {
		return pmerr.ErrKeyDestroyed
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateLocked() == LockedOut {
		return pmerr.ErrLockedOut
	}
	m.replaceContextLocked(cc)
	m.session = m.newSessionLocked()
	m.log.Info().Time("expires_at", m.session.ExpiresAt).Msg("session established for new vault")
	return nil
}

// Rekey swaps the session's context, for a master password change. The
// session keeps its expiry.
func (m *Manager) Rekey(cc *krypto.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(); err != nil {
		return err
	}
	m.replaceContextLocked(cc)
	return nil
}

// Context returns the vault's crypto context. It is the only accessor for key
// material and fails unless the state is Authenticated. An expired session is
// torn down on first use.
func (m *Manager) Context() (*krypto.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(); err != nil {
		return nil, err
	}
	return m.cc, nil
}

// Touch records activity. It does not move the expiry.
func (m *Manager) Touch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(); err != nil {
		return err
	}
	m.session.LastActivity = m.now()
	return nil
}

// Extend sets the expiry to the last recorded activity plus d.
func (m *Manager) Extend(d time.Duration) error {
	if d <= 0 {
		return pmerr.Wrap(pmerr.KindInvalidInput, "extend session", fmt.Errorf("timeout must be positive, got %s", d))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(); err != nil {
		return err
	}
	m.session.ExpiresAt = m.session.LastActivity.Add(d)
	m.log.Debug().Time("expires_at", m.session.ExpiresAt).Msg("session extended")
	return nil
}

// Logout destroys the key and discards the session, including its failed
// attempt count.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked()
}

func (m *Manager) logoutLocked() {
	if m.cc != nil {
		m.cc.Destroy()
		m.cc = nil
	}
	m.session = nil
}

func (m *Manager) requireLocked() error {
	switch m.stateLocked() {
	case Authenticated:
		return nil
	case LockedOut:
		return pmerr.ErrLockedOut
	}
	if m.session != nil && m.session.Active {
		m.log.Info().Msg("session expired")
		m.expireLocked()
		return pmerr.ErrSessionExpired
	}
	return pmerr.ErrNotAuthenticated
}

// expireLocked drops the key of an expired session. Failed attempts survive
// expiry; only a successful authentication or Logout clears them.
func (m *Manager) expireLocked() {
	if m.cc != nil {
		m.cc.Destroy()
		m.cc = nil
	}
	if m.session.FailedAttempts > 0 {
		m.session.Active = false
		return
	}
	m.session = nil
}

func (m *Manager) recordFailureLocked() error {
	if m.session == nil {
		now := m.now()
		m.session = &Session{CreatedAt: now, ExpiresAt: now.Add(m.timeout), LastActivity: now}
	}
	m.session.FailedAttempts++
	attempts := m.session.FailedAttempts

	if attempts >= m.max {
		if m.cc != nil {
			m.cc.Destroy()
			m.cc = nil
		}
		m.session.Active = false
		m.log.Warn().Int("failed_attempts", attempts).Msg("locked out")
	} else {
		m.log.Info().Int("failed_attempts", attempts).Int("max", m.max).Msg("authentication failed")
	}
	return pmerr.ErrAuthFailed
}

func (m *Manager) newSessionLocked() *Session {
	now := m.now()
	return &Session{
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.timeout),
		LastActivity: now,
		Active:       true,
	}
}

func (m *Manager) replaceContextLocked(cc *krypto.Context) {
	if m.cc != nil && m.cc != cc {
		m.cc.Destroy()
	}
	m.cc = cc
}
