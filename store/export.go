package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/internal/vault"
	"github.com/Hussein-Mazeh/passman/krypto"
)

// Export writes doc to path as nonce || ciphertext || tag under the open
// session's key. The file carries no salt; it can only be imported by a
// session holding the same key.
func (s *Store) Export(doc *vault.Document, cc *krypto.Context, path string) error {
	if doc == nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "export vault", errors.New("document is nil"))
	}
	if path == "" {
		return pmerr.Wrap(pmerr.KindInvalidInput, "export vault", errors.New("export path is required"))
	}
	if err := s.checkExportPath(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "create export directory", err)
	}

	sealed, err := seal(doc, cc)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, sealed); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("accounts", doc.Len()).Msg("vault exported")
	return nil
}

// checkExportPath refuses targets inside the vault directory, which holds
// every vault file and its backups.
func (s *Store) checkExportPath(path string) error {
	target, err := resolvePath(path)
	if err != nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "export vault", err)
	}
	dir, err := resolvePath(s.paths.VaultDir())
	if err != nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "export vault", err)
	}
	if within(dir, target) {
		return pmerr.Wrap(pmerr.KindInvalidInput, "export vault",
			fmt.Errorf("%s is inside the vault directory %s", path, s.paths.VaultDir()))
	}
	return nil
}

// resolvePath returns the absolute form of p with symlinks in its longest
// existing prefix resolved. The tail that does not exist yet is kept as is.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	var tail []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Import decrypts an exported file with cc. It does not touch the canonical
// vault; the caller saves the returned document.
func (s *Store) Import(cc *krypto.Context, path string) (*vault.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindStorage, "read import file", err)
	}
	doc, err := open(cc, data)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	s.log.Info().Str("path", path).Int("accounts", doc.Len()).Msg("vault imported")
	return doc, nil
}
