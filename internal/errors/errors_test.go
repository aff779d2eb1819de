package errors_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("open vault: %w", pmerr.ErrLockedOut)

	if got := pmerr.KindOf(err); got != pmerr.KindAuthenticationFailed {
		t.Fatalf("KindOf = %v, want AuthenticationFailed", got)
	}
	if !errors.Is(err, pmerr.ErrLockedOut) {
		t.Fatalf("errors.Is should match ErrLockedOut")
	}
	if errors.Is(err, pmerr.ErrAuthFailed) {
		t.Fatalf("lockout must be distinguishable from a plain failure")
	}
}

func TestWrapUsesOutermostKind(t *testing.T) {
	err := pmerr.Wrap(pmerr.KindStorage, "read vault", os.ErrPermission)

	if !pmerr.Is(err, pmerr.KindStorage) {
		t.Fatalf("expected StorageError, got %v", pmerr.KindOf(err))
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("wrapped cause should remain reachable")
	}
	if got, want := err.Error(), "read vault: "+os.ErrPermission.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	outer := pmerr.Wrap(pmerr.KindAuthenticationFailed, "open", err)
	if got := pmerr.KindOf(outer); got != pmerr.KindAuthenticationFailed {
		t.Fatalf("KindOf(outer) = %v", got)
	}
}

func TestWrapNil(t *testing.T) {
	if pmerr.Wrap(pmerr.KindCrypto, "noop", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
	if pmerr.KindOf(errors.New("plain")) != pmerr.KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}

func TestKindNames(t *testing.T) {
	cases := map[pmerr.Kind]string{
		pmerr.KindAuthenticationFailed: "AuthenticationFailed",
		pmerr.KindCrypto:               "CryptoError",
		pmerr.KindStorage:              "StorageError",
		pmerr.KindVaultNotFound:        "VaultNotFound",
		pmerr.KindAccountNotFound:      "AccountNotFound",
		pmerr.KindInvalidInput:         "InvalidInput",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Fatalf("%d.String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
