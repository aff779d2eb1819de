package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	vaultExt      = ".vault"
	vaultsSubdir  = "vaults"
	backupsSubdir = "backups"

	dirPerm  os.FileMode = 0o700
	filePerm os.FileMode = 0o600
)

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateName reports whether name can be used as a vault identifier.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%q: %w", name, pmerr.ErrInvalidName)
	}
	return nil
}

// Paths locates vault artifacts under a per-user root directory.
type Paths struct {
	Root string
}

// VaultDir holds the canonical vault files.
func (p Paths) VaultDir() string { return filepath.Join(p.Root, vaultsSubdir) }

// BackupDir holds timestamped copies of previous vault files.
func (p Paths) BackupDir() string { return filepath.Join(p.VaultDir(), backupsSubdir) }

// VaultPath resolves the canonical file for a vault name.
func (p Paths) VaultPath(name string) string {
	return filepath.Join(p.VaultDir(), name+vaultExt)
}

// LockPath resolves the advisory lock file for a vault name.
func (p Paths) LockPath(name string) string {
	return filepath.Join(p.VaultDir(), "."+name+".lock")
}

func (p Paths) ensureDirs() error {
	if p.Root == "" {
		return pmerr.Wrap(pmerr.KindStorage, "create vault directory", errors.New("root directory not specified"))
	}
	for _, dir := range []string{p.Root, p.VaultDir(), p.BackupDir()} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return pmerr.Wrap(pmerr.KindStorage, "create vault directory", err)
		}
	}
	return nil
}

// List returns the names of all vaults, sorted.
func (p Paths) List() ([]string, error) {
	entries, err := os.ReadDir(p.VaultDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, pmerr.Wrap(pmerr.KindStorage, "list vaults", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != vaultExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), vaultExt))
	}
	slices.Sort(names)
	return names, nil
}

// Delete removes a vault's canonical file, its backups and its lock file.
func (p Paths) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(p.VaultPath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, pmerr.ErrVaultNotFound)
		}
		return pmerr.Wrap(pmerr.KindStorage, "delete vault", err)
	}

	backups, err := listBackups(p.BackupDir(), name)
	if err != nil {
		return err
	}
	for _, b := range backups {
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return pmerr.Wrap(pmerr.KindStorage, "delete backup", err)
		}
	}
	if err := os.Remove(p.LockPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pmerr.Wrap(pmerr.KindStorage, "delete lock file", err)
	}
	return nil
}
