//go:build unix

package store

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

func acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindStorage, "open lock file", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, pmerr.ErrVaultBusy)
		}
		return nil, pmerr.Wrap(pmerr.KindStorage, "lock vault", err)
	}
	return &Lock{f: f, path: path}, nil
}

func release(f *os.File) error {
	uerr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	cerr := f.Close()
	if uerr != nil {
		return pmerr.Wrap(pmerr.KindStorage, "unlock vault", uerr)
	}
	if cerr != nil {
		return pmerr.Wrap(pmerr.KindStorage, "close lock file", cerr)
	}
	return nil
}
