package keyring_test

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/Hussein-Mazeh/passman/internal/keyring"
)

func TestPasswordLifecycle(t *testing.T) {
	gokeyring.MockInit()

	if keyring.HasPassword("default") {
		t.Fatalf("expected empty keyring")
	}
	if _, err := keyring.GetPassword("default"); !errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := keyring.SavePassword("default", []byte("CorrectHorse1!")); err != nil {
		t.Fatalf("SavePassword returned error: %v", err)
	}
	if !keyring.HasPassword("default") {
		t.Fatalf("expected stored password")
	}
	pw, err := keyring.GetPassword("default")
	if err != nil {
		t.Fatalf("GetPassword returned error: %v", err)
	}
	if string(pw) != "CorrectHorse1!" {
		t.Fatalf("unexpected password %q", pw)
	}

	if err := keyring.DeletePassword("default"); err != nil {
		t.Fatalf("DeletePassword returned error: %v", err)
	}
	if err := keyring.DeletePassword("default"); err != nil {
		t.Fatalf("second DeletePassword returned error: %v", err)
	}
	if keyring.HasPassword("default") {
		t.Fatalf("expected password to be gone")
	}
}
