package krypto

import (
	"crypto/subtle"
	"errors"

	"github.com/awnumar/memguard"
)

// SecureKey holds a symmetric key in locked, guarded memory. The bytes never
// leave this package; callers must call Destroy on every exit path.
type SecureKey struct {
	buf *memguard.LockedBuffer
}

// newSecureKey moves raw into a locked buffer. raw is wiped.
func newSecureKey(raw []byte) *SecureKey {
	return &SecureKey{buf: memguard.NewBufferFromBytes(raw)}
}

// Alive reports whether the key still holds material.
func (k *SecureKey) Alive() bool {
	return k != nil && k.buf != nil && k.buf.IsAlive()
}

// Destroy zeroes and releases the key. It is safe to call more than once.
func (k *SecureKey) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}

// Equal compares two keys in constant time.
func (k *SecureKey) Equal(other *SecureKey) bool {
	if !k.Alive() || !other.Alive() {
		return false
	}
	return subtle.ConstantTimeCompare(k.buf.Bytes(), other.buf.Bytes()) == 1
}

func (k *SecureKey) bytes() []byte {
	if !k.Alive() {
		return nil
	}
	return k.buf.Bytes()
}

func (k *SecureKey) String() string   { return "SecureKey(redacted)" }
func (k *SecureKey) GoString() string { return "SecureKey(redacted)" }

// MarshalJSON always fails so a key can never end up in a serialized document.
func (k *SecureKey) MarshalJSON() ([]byte, error) {
	return nil, errors.New("secure key cannot be serialized")
}
