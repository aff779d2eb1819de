package store

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	backupPrefix     = "vault_backup_"
	backupTimeLayout = "20060102T150405.000000000Z"
	maxNameAttempts  = 1000
)

var removeFile = os.Remove

// Backup is a timestamped copy of a previous vault file.
type Backup struct {
	Path     string
	Taken    time.Time
	Modified time.Time
	Size     int64
}

func backupName(ts time.Time, name string) string {
	return backupPrefix + ts.UTC().Format(backupTimeLayout) + "_" + name + vaultExt
}

// parseBackupName splits vault_backup_<ts>_<name>.vault into its parts. The
// timestamp has a fixed width, so names containing '_' are recovered exactly.
func parseBackupName(file string) (time.Time, string, bool) {
	if !strings.HasPrefix(file, backupPrefix) || !strings.HasSuffix(file, vaultExt) {
		return time.Time{}, "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(file, backupPrefix), vaultExt)
	if len(rest) < len(backupTimeLayout)+2 || rest[len(backupTimeLayout)] != '_' {
		return time.Time{}, "", false
	}
	ts, err := time.Parse(backupTimeLayout, rest[:len(backupTimeLayout)])
	if err != nil {
		return time.Time{}, "", false
	}
	name := rest[len(backupTimeLayout)+1:]
	if ValidateName(name) != nil {
		return time.Time{}, "", false
	}
	return ts, name, true
}

// Backups lists this vault's backups, newest first.
func (s *Store) Backups() ([]Backup, error) {
	return listBackups(s.paths.BackupDir(), s.name)
}

func listBackups(dir, name string) ([]Backup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, pmerr.Wrap(pmerr.KindStorage, "list backups", err)
	}

	var out []Backup
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ts, owner, ok := parseBackupName(e.Name())
		if !ok || owner != name {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, pmerr.Wrap(pmerr.KindStorage, "stat backup", err)
		}
		out = append(out, Backup{
			Path:     filepath.Join(dir, e.Name()),
			Taken:    ts,
			Modified: fi.ModTime(),
			Size:     fi.Size(),
		})
	}

	slices.SortFunc(out, func(a, b Backup) int {
		if c := b.Modified.Compare(a.Modified); c != 0 {
			return c
		}
		return cmp.Compare(b.Path, a.Path)
	})
	return out, nil
}

// backup copies the canonical file into the backup directory.
func (s *Store) backup() (Backup, error) {
	src, err := os.Open(s.Path())
	if err != nil {
		return Backup{}, pmerr.Wrap(pmerr.KindStorage, "open vault for backup", err)
	}
	defer src.Close()

	ts := s.now().UTC()
	var (
		dst  *os.File
		path string
	)
	for i := 0; i < maxNameAttempts; i++ {
		path = filepath.Join(s.paths.BackupDir(), backupName(ts, s.name))
		dst, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return Backup{}, pmerr.Wrap(pmerr.KindStorage, "create backup", err)
		}
		ts = ts.Add(time.Nanosecond)
	}
	if dst == nil {
		return Backup{}, pmerr.Wrap(pmerr.KindStorage, "create backup", fmt.Errorf("no free backup name after %d attempts", maxNameAttempts))
	}

	n, err := io.Copy(dst, src)
	if err == nil {
		err = dst.Sync()
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Backup{}, pmerr.Wrap(pmerr.KindStorage, "write backup", err)
	}
	if err := os.Chmod(path, filePerm); err != nil {
		return Backup{}, pmerr.Wrap(pmerr.KindStorage, "chmod backup", err)
	}
	return Backup{Path: path, Taken: ts, Size: n}, nil
}

// rotate deletes all but the newest retention backups and returns how many
// were removed.
func (s *Store) rotate() (int, error) {
	backups, err := s.Backups()
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.retention {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[s.retention:] {
		if err := removeFile(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, pmerr.Wrap(pmerr.KindStorage, "remove old backup", err)
		}
		removed++
	}
	return removed, nil
}
