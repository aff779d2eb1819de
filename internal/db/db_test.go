package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Hussein-Mazeh/passman/internal/db"
)

func openTestDB(t *testing.T) (*db.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "audit.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, path
}

func TestOpenCreatesOwnerOnlyDatabaseFile(t *testing.T) {
	_, path := openTestDB(t)

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected database file to exist at %q: %v", path, err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", fi.Mode().Perm())
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := db.Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestInsertAndListEvents(t *testing.T) {
	d, _ := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	events := []db.Event{
		{At: base, Vault: "default", Action: db.ActionInit, Outcome: db.OutcomeOK},
		{At: base.Add(time.Second), Vault: "default", Action: db.ActionOpen, Outcome: db.OutcomeFailed},
		{At: base.Add(1500 * time.Millisecond), Vault: "work", Action: db.ActionOpen, Outcome: db.OutcomeOK},
		{At: base.Add(2 * time.Second), Vault: "default", Action: db.ActionLockout, Outcome: db.OutcomeFailed, Detail: "3 attempts"},
	}
	for _, e := range events {
		if err := d.Record(ctx, e); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	got, err := db.ListEvents(ctx, d, "default", 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Action != db.ActionLockout || got[0].Detail != "3 attempts" {
		t.Fatalf("expected newest event first, got %+v", got[0])
	}
	if !got[2].At.Equal(base) {
		t.Fatalf("expected oldest event at %v, got %v", base, got[2].At)
	}

	all, err := db.ListEvents(ctx, d, "", 2)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(all) != 2 || all[1].Vault != "work" {
		t.Fatalf("unexpected events across vaults: %+v", all)
	}
}

func TestPruneEvents(t *testing.T) {
	d, _ := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		e := db.Event{At: base.Add(time.Duration(i) * time.Hour), Vault: "default", Action: db.ActionSave, Outcome: db.OutcomeOK}
		if err := db.InsertEvent(ctx, d, e); err != nil {
			t.Fatalf("InsertEvent returned error: %v", err)
		}
	}

	n, err := db.PruneEvents(ctx, d, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("PruneEvents returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pruned events, got %d", n)
	}

	left, err := db.ListEvents(ctx, d, "default", 0)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("expected 2 remaining events, got %d", len(left))
	}
}

func TestReopenKeepsEventsAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := d.Record(context.Background(), db.Event{Vault: "default", Action: db.ActionInit, Outcome: db.OutcomeOK}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	d.Close()

	d, err = db.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer d.Close()
	if err := db.Migrate(context.Background(), d); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
	events, err := db.ListEvents(context.Background(), d, "default", 0)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after reopen, got %d", len(events))
	}
}
