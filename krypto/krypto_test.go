package krypto_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/krypto"
)

func fixedSalt() krypto.Salt {
	var s krypto.Salt
	for i := range s {
		s[i] = byte(i + 1)
	}
	return s
}

func TestDeriveIsDeterministic(t *testing.T) {
	salt := fixedSalt()

	k1, err := krypto.Derive([]byte("CorrectHorse1!"), salt)
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}
	defer k1.Destroy()

	k2, err := krypto.Derive([]byte("CorrectHorse1!"), salt)
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}
	defer k2.Destroy()

	if !k1.Equal(k2) {
		t.Fatalf("expected identical keys for identical password and salt")
	}

	k3, err := krypto.Derive([]byte("CorrectHorse2!"), salt)
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}
	defer k3.Destroy()
	if k1.Equal(k3) {
		t.Fatalf("different passwords must not produce the same key")
	}
}

func TestGenerateAndDeriveUsesFreshSalt(t *testing.T) {
	k1, s1, err := krypto.GenerateAndDerive([]byte("pw"))
	if err != nil {
		t.Fatalf("GenerateAndDerive returned error: %v", err)
	}
	defer k1.Destroy()
	k2, s2, err := krypto.GenerateAndDerive([]byte("pw"))
	if err != nil {
		t.Fatalf("GenerateAndDerive returned error: %v", err)
	}
	defer k2.Destroy()

	if s1 == s2 {
		t.Fatalf("expected distinct salts")
	}
	if k1.Equal(k2) {
		t.Fatalf("expected distinct keys under distinct salts")
	}

	again, err := krypto.Derive([]byte("pw"), s1)
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}
	defer again.Destroy()
	if !again.Equal(k1) {
		t.Fatalf("re-deriving with the stored salt must reproduce the key")
	}
}

func TestDeriveRejectsEmptyPassword(t *testing.T) {
	_, err := krypto.Derive(nil, fixedSalt())
	if !errors.Is(err, pmerr.ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestSaltFromBytes(t *testing.T) {
	if _, err := krypto.SaltFromBytes(make([]byte, 12)); !errors.Is(err, pmerr.ErrInvalidSalt) {
		t.Fatalf("expected ErrInvalidSalt, got %v", err)
	}
	raw := bytes.Repeat([]byte{7}, krypto.SaltSize)
	s, err := krypto.SaltFromBytes(raw)
	if err != nil {
		t.Fatalf("SaltFromBytes returned error: %v", err)
	}
	if !bytes.Equal(s[:], raw) {
		t.Fatalf("salt bytes not copied")
	}
}

func newTestContext(t *testing.T) *krypto.Context {
	t.Helper()
	cc, err := krypto.DeriveContext([]byte("test-password"), fixedSalt())
	if err != nil {
		t.Fatalf("DeriveContext returned error: %v", err)
	}
	t.Cleanup(cc.Destroy)
	return cc
}

func TestSealOpenRoundTrip(t *testing.T) {
	cc := newTestContext(t)

	for _, pt := range [][]byte{{}, []byte("x"), bytes.Repeat([]byte("secret"), 1000)} {
		ct, err := cc.Seal(pt)
		if err != nil {
			t.Fatalf("Seal returned error: %v", err)
		}
		if len(ct) != krypto.NonceSize+len(pt)+krypto.TagSize {
			t.Fatalf("unexpected ciphertext length %d for plaintext %d", len(ct), len(pt))
		}
		got, err := cc.Open(ct)
		if err != nil {
			t.Fatalf("Open returned error: %v", err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch")
		}
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	cc := newTestContext(t)

	a, err := cc.Seal([]byte("same"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	b, err := cc.Seal([]byte("same"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if bytes.Equal(a[:krypto.NonceSize], b[:krypto.NonceSize]) {
		t.Fatalf("nonce repeated across calls")
	}
}

func TestOpenDetectsEveryByteFlip(t *testing.T) {
	cc := newTestContext(t)

	ct, err := cc.Seal([]byte("account data"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01
		pt, err := cc.Open(tampered)
		if err == nil {
			t.Fatalf("flip at byte %d: expected failure, got plaintext %q", i, pt)
		}
		if !pmerr.Is(err, pmerr.KindCrypto) {
			t.Fatalf("flip at byte %d: expected CryptoError, got %v", i, err)
		}
	}
}

func TestOpenRejectsShortInput(t *testing.T) {
	cc := newTestContext(t)

	_, err := cc.Open(make([]byte, krypto.NonceSize-1))
	if !errors.Is(err, pmerr.ErrCiphertextTooShort) {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	cc := newTestContext(t)
	other, err := krypto.DeriveContext([]byte("other-password"), fixedSalt())
	if err != nil {
		t.Fatalf("DeriveContext returned error: %v", err)
	}
	defer other.Destroy()

	ct, err := cc.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if _, err := other.Open(ct); !errors.Is(err, pmerr.ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDestroyedContextIsUnusable(t *testing.T) {
	cc, err := krypto.DeriveContext([]byte("pw"), fixedSalt())
	if err != nil {
		t.Fatalf("DeriveContext returned error: %v", err)
	}
	cc.Destroy()
	cc.Destroy()

	if cc.Alive() {
		t.Fatalf("context should report dead after Destroy")
	}
	if _, err := cc.Seal([]byte("x")); !errors.Is(err, pmerr.ErrKeyDestroyed) {
		t.Fatalf("expected ErrKeyDestroyed, got %v", err)
	}
}

func TestSecureKeyNeverPrints(t *testing.T) {
	key, err := krypto.Derive([]byte("pw"), fixedSalt())
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}
	defer key.Destroy()

	for _, s := range []string{fmt.Sprint(key), fmt.Sprintf("%v", key), fmt.Sprintf("%#v", key)} {
		if s != "SecureKey(redacted)" {
			t.Fatalf("key formatted as %q", s)
		}
	}
	if _, err := json.Marshal(struct{ K *krypto.SecureKey }{key}); err == nil {
		t.Fatalf("expected json.Marshal to refuse a SecureKey")
	}
}
