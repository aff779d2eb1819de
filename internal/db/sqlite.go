package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite" // SQLite driver

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// DB wraps the SQLite handle of the audit log.
type DB struct {
	sql  *sql.DB
	path string
}

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id      TEXT PRIMARY KEY,
		at      TEXT NOT NULL,
		vault   TEXT NOT NULL,
		action  TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_vault_at ON events(vault, at)`,
}

// Open opens or creates the audit log at path and brings its schema up to
// date. The file and its directory are private to the owner.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, pmerr.Wrap(pmerr.KindInvalidInput, "open audit log", errors.New("path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, pmerr.Wrap(pmerr.KindStorage, "create audit log directory", err)
	}

	handle, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindStorage, "open audit log", err)
	}
	// One writer; concurrent CLI invocations wait on busy_timeout.
	handle.SetMaxOpenConns(1)

	d := &DB{sql: handle, path: path}
	if err := d.init(context.Background()); err != nil {
		handle.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) init(ctx context.Context) error {
	if err := d.sql.PingContext(ctx); err != nil {
		return pmerr.Wrap(pmerr.KindStorage, "ping audit log", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(d.path, 0o600); err != nil {
			return pmerr.Wrap(pmerr.KindStorage, "restrict audit log", err)
		}
	}
	return Migrate(ctx, d)
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close releases the database handle. Closing a nil DB is a no-op.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Migrate applies any migrations the database has not seen yet.
func Migrate(ctx context.Context, d *DB) error {
	if d == nil || d.sql == nil {
		return errNilHandle
	}

	var version int
	if err := d.sql.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return pmerr.Wrap(pmerr.KindStorage, "migrate audit log",
			fmt.Errorf("schema version %d is newer than this build (%d)", version, len(migrations)))
	}

	for i := version; i < len(migrations); i++ {
		if _, err := d.sql.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := d.sql.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("record schema version %d: %w", i+1, err)
		}
	}
	return nil
}

var errNilHandle = errors.New("database handle is nil")
