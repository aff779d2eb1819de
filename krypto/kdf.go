package krypto

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	// SaltSize is the length in bytes of the per-vault KDF salt.
	SaltSize = 16
	// KeySize is the length in bytes of a derived vault key.
	KeySize = 32
)

// Salt is the random, non-secret value stored at the head of every vault file.
type Salt [SaltSize]byte

// SaltFromBytes copies b into a Salt, rejecting any other length.
func SaltFromBytes(b []byte) (Salt, error) {
	var s Salt
	if len(b) != SaltSize {
		return s, fmt.Errorf("salt must be %d bytes, got %d: %w", SaltSize, len(b), pmerr.ErrInvalidSalt)
	}
	copy(s[:], b)
	return s, nil
}

// NewSalt returns a fresh random salt.
func NewSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return s, pmerr.Wrap(pmerr.KindCrypto, "generate salt", err)
	}
	return s, nil
}

// Params captures the Argon2id cost parameters.
type Params struct {
	MemoryMB    uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultParams returns the fixed parameters every vault is derived with.
// Changing them makes existing vaults undecryptable.
func DefaultParams() Params {
	return Params{
		MemoryMB:    64,
		Time:        3,
		Parallelism: 1,
		KeyLen:      KeySize,
	}
}

// Derive turns a master password and a vault salt into a SecureKey.
// The result is deterministic for a given (password, salt) pair.
func Derive(password []byte, salt Salt) (*SecureKey, error) {
	return deriveKey(password, salt, DefaultParams())
}

// GenerateAndDerive creates a new salt and derives a key from it. It is meant
// for vault creation only; existing vaults keep their salt.
func GenerateAndDerive(password []byte) (*SecureKey, Salt, error) {
	salt, err := NewSalt()
	if err != nil {
		return nil, salt, err
	}
	key, err := deriveKey(password, salt, DefaultParams())
	if err != nil {
		return nil, salt, err
	}
	return key, salt, nil
}

func deriveKey(password []byte, salt Salt, p Params) (*SecureKey, error) {
	if len(password) == 0 {
		return nil, pmerr.ErrEmptyPassword
	}
	if p.KeyLen != KeySize {
		return nil, pmerr.Wrap(pmerr.KindCrypto, "derive key", fmt.Errorf("key length must be %d", KeySize))
	}
	if p.MemoryMB == 0 || p.Time == 0 || p.Parallelism == 0 {
		return nil, pmerr.Wrap(pmerr.KindCrypto, "derive key", fmt.Errorf("argon2 parameters must be positive"))
	}

	raw := argon2.IDKey(password, salt[:], p.Time, p.MemoryMB*1024, p.Parallelism, p.KeyLen)
	if uint32(len(raw)) != p.KeyLen {
		memguard.WipeBytes(raw)
		return nil, pmerr.Wrap(pmerr.KindCrypto, "derive key", fmt.Errorf("derived key has unexpected length %d", len(raw)))
	}
	return newSecureKey(raw), nil
}
