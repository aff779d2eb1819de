// Package service exposes the high-level vault operations used by the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hussein-Mazeh/passman/auth"
	"github.com/Hussein-Mazeh/passman/internal/db"
	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/internal/site"
	"github.com/Hussein-Mazeh/passman/internal/vault"
	"github.com/Hussein-Mazeh/passman/krypto"
	"github.com/Hussein-Mazeh/passman/store"
)

// Auditor receives audit events. *db.DB implements it.
type Auditor interface {
	Record(ctx context.Context, e db.Event) error
}

// Options configures a Service.
type Options struct {
	Paths           store.Paths
	Session         auth.Config
	BackupRetention int
	Policy          auth.PolicyOptions
	Audit           Auditor
	Logger          zerolog.Logger
}

// Service manages one named vault: its file, its session and, while open,
// its decrypted document.
type Service struct {
	name   string
	store  *store.Store
	auth   *auth.Manager
	policy auth.PolicyOptions
	audit  Auditor
	log    zerolog.Logger
	now    func() time.Time

	doc  *vault.Document
	lock *store.Lock
}

// New returns a Service for the vault called name. Nothing is read from disk
// until Init or Open.
func New(name string, opts Options) (*Service, error) {
	if opts.Paths.Root == "" {
		return nil, pmerr.Wrap(pmerr.KindInvalidInput, "new service", errors.New("vault root directory is required"))
	}
	log := opts.Logger.With().Str("vault", name).Logger()
	now := opts.Session.Now
	if now == nil {
		now = time.Now
	}

	st, err := store.New(opts.Paths, name,
		store.WithRetention(opts.BackupRetention),
		store.WithLogger(opts.Logger),
		store.WithClock(now),
	)
	if err != nil {
		return nil, err
	}

	sessCfg := opts.Session
	sessCfg.Logger = log
	return &Service{
		name:   name,
		store:  st,
		auth:   auth.NewManager(sessCfg),
		policy: opts.Policy,
		audit:  opts.Audit,
		log:    log,
		now:    now,
	}, nil
}

// Name returns the vault name.
func (s *Service) Name() string { return s.name }

// Exists reports whether the vault file is present.
func (s *Service) Exists() bool { return s.store.Exists() }

// Init creates a new vault owned by owner and opens it. It refuses to
// overwrite an existing vault.
//
// Init is the only path on which a key exists before a password has been
// checked against a vault file. It runs under the vault lock and only after
// confirming that no vault file exists, so it can never stand in for Open.
func (s *Service) Init(owner string, master []byte) (err error) {
	defer func() { s.record(db.ActionInit, err, "") }()

	if s.doc != nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "init vault", errors.New("vault is already open"))
	}
	if err := s.acquire(); err != nil {
		return err
	}
	if s.store.Exists() {
		s.release()
		return fmt.Errorf("%s: %w", s.name, pmerr.ErrVaultExists)
	}

	policy := s.policy
	policy.UserInputs = append(policy.UserInputs, owner)
	if err := auth.ValidateMasterPassword(context.Background(), string(master), policy); err != nil {
		s.release()
		return err
	}

	cc, err := krypto.NewContext(master)
	if err != nil {
		s.release()
		return err
	}
	if err := s.auth.Establish(cc); err != nil {
		cc.Destroy()
		s.release()
		return err
	}

	s.doc = vault.New(owner)
	if err := s.save(); err != nil {
		s.teardown()
		return err
	}
	s.log.Info().Msg("vault created")
	return nil
}

// Open authenticates master against the vault file and loads the document.
// An already open vault is refused without checking master; Close it first.
func (s *Service) Open(master []byte) (err error) {
	defer func() { s.record(db.ActionOpen, err, "") }()

	if s.IsOpen() {
		return pmerr.Wrap(pmerr.KindInvalidInput, "open vault", errors.New("vault is already open"))
	}
	if err := s.acquire(); err != nil {
		return err
	}
	if !s.store.Exists() {
		s.release()
		return fmt.Errorf("%s: %w", s.name, pmerr.ErrVaultNotFound)
	}

	var doc *vault.Document
	err = s.auth.Authenticate(master, func(pw []byte) (*krypto.Context, error) {
		d, cc, err := s.store.Load(pw)
		if err != nil {
			return nil, err
		}
		doc = d
		return cc, nil
	})
	if err != nil {
		s.doc = nil
		s.release()
		if errors.Is(err, pmerr.ErrAuthFailed) && s.auth.State() == auth.LockedOut {
			s.record(db.ActionLockout, err, fmt.Sprintf("%d failed attempts", s.auth.FailedAttempts()))
		}
		return err
	}

	s.doc = doc
	s.log.Info().Int("accounts", doc.Len()).Msg("vault opened")
	return nil
}

// Close zeroizes the key, drops the document and releases the vault lock.
func (s *Service) Close() error {
	wasOpen := s.doc != nil
	err := s.teardown()
	if wasOpen {
		s.record(db.ActionClose, err, "")
	}
	return err
}

func (s *Service) teardown() error {
	s.auth.Logout()
	s.doc = nil
	return s.release()
}

// IsOpen reports whether the vault is open and its session still valid.
func (s *Service) IsOpen() bool {
	return s.doc != nil && s.auth.Valid()
}

// SessionValid reports whether the session is Authenticated and unexpired.
func (s *Service) SessionValid() bool { return s.IsOpen() }

// State returns the authentication state.
func (s *Service) State() auth.State { return s.auth.State() }

// FailedAttempts returns the consecutive failed authentication count.
func (s *Service) FailedAttempts() int { return s.auth.FailedAttempts() }

// Session returns the current session, if authenticated.
func (s *Service) Session() (auth.Session, bool) {
	st, sess := s.auth.Status()
	if st != auth.Authenticated || s.doc == nil {
		return auth.Session{}, false
	}
	return *sess, true
}

// Touch records user activity on the session.
func (s *Service) Touch() error {
	if _, err := s.context(); err != nil {
		return err
	}
	return s.auth.Touch()
}

// ExtendSession moves the session expiry to the last activity plus d.
func (s *Service) ExtendSession(d time.Duration) error {
	if _, err := s.context(); err != nil {
		return err
	}
	return s.auth.Extend(d)
}

// context returns the crypto context of the open vault. When the session has
// expired the document is dropped along with the key.
func (s *Service) context() (*krypto.Context, error) {
	cc, err := s.auth.Context()
	if err != nil {
		if errors.Is(err, pmerr.ErrSessionExpired) {
			s.doc = nil
			s.release()
		}
		return nil, err
	}
	if s.doc == nil {
		return nil, pmerr.ErrNotAuthenticated
	}
	return cc, nil
}

func (s *Service) touch() {
	if err := s.auth.Touch(); err != nil {
		s.log.Debug().Err(err).Msg("touch session")
	}
}

func (s *Service) save() (err error) {
	defer func() { s.record(db.ActionSave, err, "") }()

	cc, err := s.context()
	if err != nil {
		return err
	}
	s.doc.Stamp(s.now())
	return s.store.Save(s.doc, cc)
}

// Metadata returns the open document's metadata.
func (s *Service) Metadata() (vault.Metadata, error) {
	if _, err := s.context(); err != nil {
		return vault.Metadata{}, err
	}
	s.touch()
	return s.doc.Metadata, nil
}

// AddAccount stores a new record and saves the vault.
func (s *Service) AddAccount(in vault.RecordInput) (vault.Record, error) {
	if _, err := s.context(); err != nil {
		return vault.Record{}, err
	}
	rec, err := s.doc.Add(in)
	if err != nil {
		return vault.Record{}, err
	}
	if err := s.save(); err != nil {
		s.doc.Remove(rec.ID)
		return vault.Record{}, err
	}
	s.touch()
	return rec, nil
}

// UpdateAccount replaces the editable fields of a record and saves the vault.
func (s *Service) UpdateAccount(id uuid.UUID, in vault.RecordInput) (vault.Record, error) {
	if _, err := s.context(); err != nil {
		return vault.Record{}, err
	}
	prev, err := s.doc.Get(id)
	if err != nil {
		return vault.Record{}, err
	}
	rec, err := s.doc.Update(id, in)
	if err != nil {
		return vault.Record{}, err
	}
	if err := s.save(); err != nil {
		s.doc.Accounts[id] = prev
		return vault.Record{}, err
	}
	s.touch()
	return rec, nil
}

// DeleteAccount removes a record and saves the vault.
func (s *Service) DeleteAccount(id uuid.UUID) error {
	if _, err := s.context(); err != nil {
		return err
	}
	prev, err := s.doc.Remove(id)
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		s.doc.Accounts[id] = prev
		return err
	}
	s.touch()
	return nil
}

// Account returns a record and marks it accessed. The access time is
// persisted with the next save.
func (s *Service) Account(id uuid.UUID) (vault.Record, error) {
	if _, err := s.context(); err != nil {
		return vault.Record{}, err
	}
	rec, err := s.doc.MarkAccessed(id)
	if err != nil {
		return vault.Record{}, err
	}
	s.touch()
	return rec, nil
}

// Accounts returns every record ordered by name.
func (s *Service) Accounts() ([]vault.Record, error) {
	return s.query(func(d *vault.Document) []vault.Record { return d.All() })
}

// Search returns records matching query.
func (s *Service) Search(query string) ([]vault.Record, error) {
	return s.query(func(d *vault.Document) []vault.Record { return d.Search(query) })
}

// ByCategory returns the records of one category.
func (s *Service) ByCategory(c vault.Category) ([]vault.Record, error) {
	return s.query(func(d *vault.Document) []vault.Record { return d.ByCategory(c) })
}

// ByTag returns the records carrying tag.
func (s *Service) ByTag(tag string) ([]vault.Record, error) {
	return s.query(func(d *vault.Document) []vault.Record { return d.ByTag(tag) })
}

// FindByName returns the records named name.
func (s *Service) FindByName(name string) ([]vault.Record, error) {
	return s.query(func(d *vault.Document) []vault.Record { return d.FindByName(name) })
}

// ForSite returns the records whose URL shares a registrable domain with
// rawURL, so gist.github.com finds the GitHub login.
func (s *Service) ForSite(rawURL string) ([]vault.Record, error) {
	domain, err := site.Domain(rawURL)
	if err != nil {
		return nil, err
	}
	return s.query(func(d *vault.Document) []vault.Record {
		var out []vault.Record
		for _, r := range d.All() {
			if r.URL == "" {
				continue
			}
			if rd, err := site.Domain(r.URL); err == nil && rd == domain {
				out = append(out, r)
			}
		}
		return out
	})
}

func (s *Service) query(fn func(*vault.Document) []vault.Record) ([]vault.Record, error) {
	if _, err := s.context(); err != nil {
		return nil, err
	}
	s.touch()
	return fn(s.doc), nil
}

// Export writes the open document to path under the session key.
func (s *Service) Export(path string) (err error) {
	defer func() { s.record(db.ActionExport, err, "") }()

	cc, err := s.context()
	if err != nil {
		return err
	}
	if err := s.store.Export(s.doc, cc, path); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Import replaces the open document with the contents of an export file
// encrypted under the session key, then saves the vault.
func (s *Service) Import(path string) (err error) {
	defer func() { s.record(db.ActionImport, err, "") }()

	cc, err := s.context()
	if err != nil {
		return err
	}
	doc, err := s.store.Import(cc, path)
	if err != nil {
		return err
	}

	prev := s.doc
	s.doc = doc
	if err := s.save(); err != nil {
		s.doc = prev
		return err
	}
	s.touch()
	return nil
}

// ChangeMaster re-encrypts the vault under next. The current password is
// verified against the vault file first and counts towards lockout; the
// session keeps its expiry. The new salt and ciphertext replace the old ones
// in a single atomic save.
func (s *Service) ChangeMaster(current, next []byte) (err error) {
	defer func() { s.record(db.ActionChangeMaster, err, "") }()

	if _, err := s.context(); err != nil {
		return err
	}

	policy := s.policy
	policy.UserInputs = append(policy.UserInputs, s.doc.Metadata.Owner)
	if err := auth.ValidateMasterPassword(context.Background(), string(next), policy); err != nil {
		return err
	}

	err = s.auth.Verify(current, func(pw []byte) (*krypto.Context, error) {
		_, cc, err := s.store.Load(pw)
		return cc, err
	})
	if err != nil {
		if s.auth.State() == auth.LockedOut {
			s.doc = nil
			s.release()
		}
		return err
	}

	newCC, err := krypto.NewContext(next)
	if err != nil {
		return err
	}
	s.doc.Stamp(s.now())
	if err := s.store.Save(s.doc, newCC); err != nil {
		newCC.Destroy()
		return err
	}
	if err := s.auth.Rekey(newCC); err != nil {
		newCC.Destroy()
		return err
	}
	s.log.Info().Msg("master password changed")
	return nil
}

// Info describes the vault file.
func (s *Service) Info() (store.Info, error) {
	return s.store.Info()
}

// Backups lists the vault's backups, newest first.
func (s *Service) Backups() ([]store.Backup, error) {
	return s.store.Backups()
}

func (s *Service) acquire() error {
	if s.lock != nil {
		return nil
	}
	l, err := s.store.Lock()
	if err != nil {
		return err
	}
	s.lock = l
	return nil
}

func (s *Service) release() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Release()
	s.lock = nil
	return err
}

func (s *Service) record(action db.Action, err error, detail string) {
	if s.audit == nil {
		return
	}
	recordEvent(s.audit, s.log, s.name, action, err, detail)
}

func recordEvent(a Auditor, log zerolog.Logger, name string, action db.Action, err error, detail string) {
	e := db.Event{Vault: name, Action: action, Outcome: db.OutcomeOK, Detail: detail}
	if err != nil {
		e.Outcome = db.OutcomeFailed
		if e.Detail == "" {
			e.Detail = pmerr.KindOf(err).String()
		}
	}
	if aerr := a.Record(context.Background(), e); aerr != nil {
		log.Warn().Err(aerr).Str("action", string(action)).Msg("audit write failed")
	}
}

// ListVaults returns the names of the vaults under paths.
func ListVaults(paths store.Paths) ([]string, error) {
	return paths.List()
}

// DeleteVault removes a vault and its backups. It fails with ErrVaultBusy
// while the vault is open in another process.
func DeleteVault(name string, opts Options) (err error) {
	if opts.Audit != nil {
		defer func() { recordEvent(opts.Audit, opts.Logger, name, db.ActionDeleteVault, err, "") }()
	}

	st, err := store.New(opts.Paths, name, store.WithLogger(opts.Logger))
	if err != nil {
		return err
	}
	if !st.Exists() {
		return fmt.Errorf("%s: %w", name, pmerr.ErrVaultNotFound)
	}
	l, err := st.Lock()
	if err != nil {
		return err
	}
	defer l.Release()

	if err := opts.Paths.Delete(name); err != nil {
		return err
	}
	opts.Logger.Info().Str("vault", name).Msg("vault deleted")
	return nil
}
