package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/awnumar/memguard"
	"github.com/rs/zerolog"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/internal/vault"
	"github.com/Hussein-Mazeh/passman/krypto"
)

// DefaultRetention is the number of backups kept per vault.
const DefaultRetention = 10

// Store persists one named vault as salt || nonce || ciphertext || tag.
type Store struct {
	paths     Paths
	name      string
	retention int
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRetention sets how many backups survive rotation.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used to name backups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store for the vault called name under paths.
func New(paths Paths, name string, opts ...Option) (*Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s := &Store{
		paths:     paths,
		name:      name,
		retention: DefaultRetention,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("vault", name).Logger()
	return s, nil
}

// Name returns the vault name.
func (s *Store) Name() string { return s.name }

// Path returns the canonical vault file path.
func (s *Store) Path() string { return s.paths.VaultPath(s.name) }

// Exists reports whether the canonical vault file is present.
func (s *Store) Exists() bool {
	fi, err := os.Stat(s.Path())
	return err == nil && fi.Mode().IsRegular()
}

// Info describes the canonical vault file.
type Info struct {
	Path     string
	Size     int64
	Modified time.Time
}

// Info stats the canonical vault file.
func (s *Store) Info() (Info, error) {
	fi, err := os.Stat(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, fmt.Errorf("%s: %w", s.name, pmerr.ErrVaultNotFound)
		}
		return Info{}, pmerr.Wrap(pmerr.KindStorage, "stat vault", err)
	}
	return Info{Path: s.Path(), Size: fi.Size(), Modified: fi.ModTime()}, nil
}

// Save encrypts doc under cc and replaces the canonical file atomically. An
// existing file is copied to the backup directory first, and old backups are
// rotated out once the new file is in place. Rotation failures are logged, not
// returned.
func (s *Store) Save(doc *vault.Document, cc *krypto.Context) error {
	if doc == nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "save vault", errors.New("document is nil"))
	}
	if err := s.paths.ensureDirs(); err != nil {
		return err
	}

	sealed, err := seal(doc, cc)
	if err != nil {
		return err
	}

	if s.Exists() {
		b, err := s.backup()
		if err != nil {
			return err
		}
		s.log.Debug().Str("backup", b.Path).Msg("backed up vault")
	}

	salt := cc.Salt()

	out := make([]byte, 0, len(salt)+len(sealed))
	out = append(out, salt[:]...)
	out = append(out, sealed...)
	if err := writeAtomic(s.Path(), out); err != nil {
		return err
	}

	// The new file is committed; a failed prune only leaves extra backups.
	removed, err := s.rotate()
	if err != nil {
		s.log.Warn().Err(err).Msg("rotate backups")
	}
	s.log.Info().Int("accounts", doc.Len()).Int("pruned_backups", removed).Msg("vault saved")
	return nil
}

// Load reads the vault, derives its key from password and the stored salt and
// decrypts the document. On success the caller owns the returned context and
// must Destroy it. A wrong password and a corrupted file both fail with a
// CryptoError.
func (s *Store) Load(password []byte) (*vault.Document, *krypto.Context, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", s.name, pmerr.ErrVaultNotFound)
		}
		return nil, nil, pmerr.Wrap(pmerr.KindStorage, "read vault", err)
	}
	if len(data) < krypto.SaltSize {
		return nil, nil, fmt.Errorf("%s: %d bytes: %w", s.name, len(data), pmerr.ErrShortFile)
	}

	salt, err := krypto.SaltFromBytes(data[:krypto.SaltSize])
	if err != nil {
		return nil, nil, err
	}
	cc, err := krypto.DeriveContext(password, salt)
	if err != nil {
		return nil, nil, err
	}

	doc, err := open(cc, data[krypto.SaltSize:])
	if err != nil {
		cc.Destroy()
		return nil, nil, err
	}
	s.log.Debug().Int("accounts", doc.Len()).Msg("vault loaded")
	return doc, cc, nil
}

func seal(doc *vault.Document, cc *krypto.Context) ([]byte, error) {
	plain, err := json.Marshal(doc)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindStorage, "encode vault", err)
	}
	defer memguard.WipeBytes(plain)

	sealed, err := cc.Seal(plain)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

func open(cc *krypto.Context, sealed []byte) (*vault.Document, error) {
	plain, err := cc.Open(sealed)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plain)

	var doc vault.Document
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("decode vault: %v: %w", err, pmerr.ErrMalformedDocument)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// writeAtomic writes data to a temp file next to path, syncs it, renames it
// over path and restricts it to the owner. A reader of path sees either the
// previous contents or data, never a partial write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "write temp file", err)
	}

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "chmod temp file", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "sync temp file", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "close temp file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return pmerr.Wrap(pmerr.KindStorage, "replace file", err)
	}

	// The temp file already carried filePerm, so the rename is the commit.
	_ = os.Chmod(path, filePerm)

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports fsync on a directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
