package store

import (
	"os"
)

// Lock is an exclusive advisory lock on one vault, held for as long as the
// vault is open in this process.
type Lock struct {
	f    *os.File
	path string
}

// Lock acquires the vault's lock without blocking. It fails with ErrVaultBusy
// when another process holds it.
func (s *Store) Lock() (*Lock, error) {
	if err := s.paths.ensureDirs(); err != nil {
		return nil, err
	}
	l, err := acquire(s.paths.LockPath(s.name))
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("lock", l.path).Msg("vault lock acquired")
	return l, nil
}

// Release drops the lock. It is safe to call on a nil or released Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := release(l.f)
	l.f = nil
	return err
}
