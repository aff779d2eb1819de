package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action names a vault operation recorded in the audit log.
type Action string

const (
	ActionInit         Action = "init"
	ActionOpen         Action = "open"
	ActionClose        Action = "close"
	ActionSave         Action = "save"
	ActionExport       Action = "export"
	ActionImport       Action = "import"
	ActionDeleteVault  Action = "delete_vault"
	ActionChangeMaster Action = "change_master"
	ActionLockout      Action = "lockout"
)

// Outcome is the result of an audited action.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Event is one audit log row. It never carries secrets.
type Event struct {
	ID      uuid.UUID
	At      time.Time
	Vault   string
	Action  Action
	Outcome Outcome
	Detail  string
}

// InsertEvent appends e, filling in its ID and timestamp when unset.
func InsertEvent(ctx context.Context, d *DB, e Event) error {
	if d == nil || d.sql == nil {
		return errNilHandle
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO events (id, at, vault, action, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.At.UTC().Format(timeLayout), e.Vault, string(e.Action), string(e.Outcome), e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Record implements the service audit sink.
func (d *DB) Record(ctx context.Context, e Event) error {
	return InsertEvent(ctx, d, e)
}

// ListEvents returns the newest events for vault, at most limit. An empty
// vault name lists every vault.
func ListEvents(ctx context.Context, d *DB, vault string, limit int) ([]Event, error) {
	if d == nil || d.sql == nil {
		return nil, errNilHandle
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, at, vault, action, outcome, detail
		 FROM events
		 WHERE ? = '' OR vault = ?
		 ORDER BY at DESC, rowid DESC
		 LIMIT ?`,
		vault, vault, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var results []Event
	for rows.Next() {
		var (
			e             Event
			id, at        string
			action, outcm string
		)
		if err := rows.Scan(&id, &at, &e.Vault, &action, &outcm, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		if e.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse event time: %w", err)
		}
		e.Action = Action(action)
		e.Outcome = Outcome(outcm)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return results, nil
}

// PruneEvents deletes events older than before and returns how many went.
func PruneEvents(ctx context.Context, d *DB, before time.Time) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, errNilHandle
	}
	res, err := d.sql.ExecContext(ctx, `DELETE FROM events WHERE at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}
