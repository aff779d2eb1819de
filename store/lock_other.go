//go:build !unix

package store

import (
	"os"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// Without flock the lock file only marks the vault as in use; a second
// process is not prevented from opening it.
func acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindStorage, "open lock file", err)
	}
	return &Lock{f: f, path: path}, nil
}

func release(f *os.File) error {
	if err := f.Close(); err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "close lock file", err)
	}
	return nil
}
